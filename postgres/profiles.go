// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package postgres

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/diffeo/go-coffeetip/coffee"
)

// scanProfile reads one row selected with profileColumns.
func scanProfile(row interface{ Scan(...interface{}) error }) (coffee.Profile, error) {
	var (
		p     coffee.Profile
		links []byte
	)
	err := row.Scan(&p.Address, &p.Username, &p.DisplayName, &p.Bio, &p.AvatarURL, &links, &p.CreatedAt)
	if err != nil {
		return coffee.Profile{}, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.Links, err = bytesToLinks(links)
	return p, err
}

func (c *pgProfiles) byKey(ctx context.Context, condition, key string) (profile coffee.Profile, err error) {
	query := buildSelect(profileColumns, []string{profileTable}, []string{condition})
	err = withTx(ctx, c.db, true, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, query, key)
		var err error
		profile, err = scanProfile(row)
		return err
	})
	if err == sql.ErrNoRows {
		err = coffee.ErrNoSuchProfile{Key: key}
	}
	return
}

func (c *pgProfiles) ByAddress(ctx context.Context, address string) (coffee.Profile, error) {
	return c.byKey(ctx, isAddress, coffee.NormalizeAddress(address))
}

func (c *pgProfiles) ByUsername(ctx context.Context, username string) (coffee.Profile, error) {
	return c.byKey(ctx, isUsername, strings.ToLower(username))
}

func (c *pgProfiles) Create(ctx context.Context, profile coffee.Profile) (coffee.Profile, error) {
	if err := coffee.ValidateUsername(profile.Username); err != nil {
		return coffee.Profile{}, err
	}
	profile.Address = coffee.NormalizeAddress(profile.Address)
	if profile.Address == "" {
		return coffee.Profile{}, coffee.ErrInvalid{Field: "address", Reason: "is required"}
	}
	links, err := linksToBytes(profile.Links)
	if err != nil {
		return coffee.Profile{}, err
	}
	profile.CreatedAt = c.clock.Now().UTC()

	params := queryParams{}
	fields := fieldList{}
	fields.Add(&params, "address", profile.Address)
	fields.Add(&params, "username", profile.Username)
	fields.Add(&params, "display_name", profile.DisplayName)
	fields.Add(&params, "bio", profile.Bio)
	fields.Add(&params, "avatar_url", profile.AvatarURL)
	fields.Add(&params, "links", links)
	fields.Add(&params, "created_at", profile.CreatedAt)
	err = execInTx(ctx, c.db, fields.InsertStatement(profileTable), params)
	if err != nil {
		return coffee.Profile{}, uniqueError(err)
	}
	return profile, nil
}

func (c *pgProfiles) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	var count int
	query := buildSelect([]string{"COUNT(*)"}, []string{profileTable}, []string{isUsername})
	err := withTx(ctx, c.db, true, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, query, strings.ToLower(username)).Scan(&count)
	})
	return count == 0, err
}

func (c *pgProfiles) Recent(ctx context.Context, limit int) ([]coffee.Profile, error) {
	query := buildSelect(profileColumns, []string{profileTable}, nil)
	query += " ORDER BY " + profileCreatedAt + " DESC, " + profileAddress
	if limit > 0 {
		query += " LIMIT " + strconv.Itoa(limit)
	}
	result := []coffee.Profile{}
	err := queryAndScan(ctx, c.db, query, nil, func(rows *sql.Rows) error {
		p, err := scanProfile(rows)
		if err == nil {
			result = append(result, p)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *pgProfiles) Count(ctx context.Context) (int, error) {
	var count int
	query := buildSelect([]string{"COUNT(*)"}, []string{profileTable}, nil)
	err := withTx(ctx, c.db, true, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, query).Scan(&count)
	})
	return count, err
}

// Close releases the connection pool.
func (c *pgProfiles) Close() error {
	return c.db.Close()
}
