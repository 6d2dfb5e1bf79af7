// Copyright 2016-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Command coffeetip is a command-line client for coffeetipd.
//
//	coffeetip --url http://localhost:5980/ coffees 0x5fbd...
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/diffeo/go-coffeetip/restclient"
	"github.com/diffeo/go-coffeetip/restdata"
	"github.com/urfave/cli"
)

// client is set up by the app's Before hook.
var client *restclient.Client

var info = cli.Command{
	Name:  "info",
	Usage: "show the server's contract and write status",
	Action: func(c *cli.Context) error {
		fmt.Fprintf(c.App.Writer, "contract: %v\n", orNone(client.ContractAddress()))
		fmt.Fprintf(c.App.Writer, "writes:   %v\n", client.WritesEnabled())
		return nil
	},
}

var creator = cli.Command{
	Name:      "creator",
	Usage:     "show a creator's on-chain registration",
	ArgsUsage: "ADDRESS",
	Action: func(c *cli.Context) error {
		address, err := oneArg(c, "ADDRESS")
		if err != nil {
			return err
		}
		info, err := client.Creator(context.Background(), address)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "address:    %v\n", info.Address)
		fmt.Fprintf(c.App.Writer, "username:   %v\n", orNone(info.Username))
		fmt.Fprintf(c.App.Writer, "registered: %v\n", info.Registered)
		fmt.Fprintf(c.App.Writer, "coffees:    %v\n", info.TotalCoffees)
		fmt.Fprintf(c.App.Writer, "total:      %v\n", info.TotalAmount)
		return nil
	},
}

var coffees = cli.Command{
	Name:      "coffees",
	Usage:     "list the coffees sent to a creator, newest first",
	ArgsUsage: "ADDRESS",
	Flags: []cli.Flag{
		cli.BoolFlag{
			Name:  "recent",
			Usage: "only show the most recent coffees",
		},
	},
	Action: func(c *cli.Context) error {
		address, err := oneArg(c, "ADDRESS")
		if err != nil {
			return err
		}
		list := client.AllCoffees
		if c.Bool("recent") {
			list = client.RecentCoffees
		}
		items, err := list(context.Background(), address)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(c.App.Writer, 0, 8, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tFROM\tNAME\tAMOUNT\tMESSAGE")
		for _, item := range items {
			when := time.Unix(item.Timestamp, 0).UTC().Format(time.RFC3339)
			if item.Optimistic {
				when = "pending"
			}
			fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\n", when, item.From, item.Name, item.Amount, item.Message)
		}
		return w.Flush()
	},
}

var balance = cli.Command{
	Name:      "balance",
	Usage:     "show the withdrawable balance of an address",
	ArgsUsage: "ADDRESS",
	Action: func(c *cli.Context) error {
		address, err := oneArg(c, "ADDRESS")
		if err != nil {
			return err
		}
		amount, err := client.Balance(context.Background(), address)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, amount)
		return nil
	},
}

var tip = cli.Command{
	Name:      "tip",
	Usage:     "buy a coffee for a creator",
	ArgsUsage: "ADDRESS",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "name",
			Usage: "your display `NAME`",
		},
		cli.StringFlag{
			Name:  "message",
			Usage: "a `MESSAGE` for the creator",
		},
		cli.StringFlag{
			Name:  "amount",
			Usage: "tip `AMOUNT` in wei",
		},
		cli.StringFlag{
			Name:  "from",
			Usage: "sender `ADDRESS` to display (defaults to the server's signer)",
		},
	},
	Action: func(c *cli.Context) error {
		address, err := oneArg(c, "ADDRESS")
		if err != nil {
			return err
		}
		result, err := client.BuyCoffee(context.Background(), address, restdata.Tip{
			From:    c.String("from"),
			Name:    c.String("name"),
			Message: c.String("message"),
			Amount:  c.String("amount"),
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, result.TxHash)
		return nil
	},
}

var register = cli.Command{
	Name:      "register",
	Usage:     "register the server's signer as a creator",
	ArgsUsage: "USERNAME",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "display-name",
			Usage: "profile display `NAME`",
		},
		cli.StringFlag{
			Name:  "bio",
			Usage: "profile `TEXT`",
		},
		cli.StringFlag{
			Name:  "avatar-url",
			Usage: "profile picture `URL`",
		},
		cli.StringSliceFlag{
			Name:  "link",
			Usage: "profile link as `NAME=URL`; may be repeated",
		},
	},
	Action: func(c *cli.Context) error {
		username, err := oneArg(c, "USERNAME")
		if err != nil {
			return err
		}
		links, err := parseLinks(c.StringSlice("link"))
		if err != nil {
			return err
		}
		profile, err := client.Register(context.Background(), restdata.Registration{
			Username:    username,
			DisplayName: c.String("display-name"),
			Bio:         c.String("bio"),
			AvatarURL:   c.String("avatar-url"),
			Links:       links,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "registered %v as %v\n", profile.Address, profile.Username)
		return nil
	},
}

var profile = cli.Command{
	Name:      "profile",
	Usage:     "show a creator profile",
	ArgsUsage: "USERNAME",
	Action: func(c *cli.Context) error {
		username, err := oneArg(c, "USERNAME")
		if err != nil {
			return err
		}
		p, err := client.ByUsername(context.Background(), username)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "username: %v\n", p.Username)
		fmt.Fprintf(c.App.Writer, "address:  %v\n", p.Address)
		fmt.Fprintf(c.App.Writer, "name:     %v\n", orNone(p.DisplayName))
		fmt.Fprintf(c.App.Writer, "bio:      %v\n", orNone(p.Bio))
		for name, link := range p.Links {
			fmt.Fprintf(c.App.Writer, "link:     %v=%v\n", name, link)
		}
		return nil
	},
}

var profiles = cli.Command{
	Name:  "profiles",
	Usage: "list the newest creator profiles",
	Flags: []cli.Flag{
		cli.IntFlag{
			Name:  "limit",
			Value: 20,
			Usage: "show at most `N` profiles",
		},
	},
	Action: func(c *cli.Context) error {
		ctx := context.Background()
		list, err := client.Recent(ctx, c.Int("limit"))
		if err != nil {
			return err
		}
		count, err := client.Count(ctx)
		if err != nil {
			return err
		}
		for _, p := range list {
			fmt.Fprintf(c.App.Writer, "%v\t%v\n", p.Username, p.Address)
		}
		fmt.Fprintf(c.App.Writer, "(%d of %d)\n", len(list), count)
		return nil
	},
}

var available = cli.Command{
	Name:      "available",
	Usage:     "check whether a username can be registered",
	ArgsUsage: "USERNAME",
	Action: func(c *cli.Context) error {
		username, err := oneArg(c, "USERNAME")
		if err != nil {
			return err
		}
		free, err := client.UsernameAvailable(context.Background(), username)
		if err != nil {
			return err
		}
		if free {
			fmt.Fprintf(c.App.Writer, "%v is available\n", username)
		} else {
			fmt.Fprintf(c.App.Writer, "%v is taken\n", username)
		}
		return nil
	},
}

var presence = cli.Command{
	Name:  "presence",
	Usage: "show or change the server's presence state",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "visible", Usage: "set visibility (true/false)"},
		cli.StringFlag{Name: "focused", Usage: "set focus (true/false)"},
		cli.StringFlag{Name: "online", Usage: "set connectivity (true/false)"},
	},
	Action: func(c *cli.Context) error {
		var change restdata.Presence
		var err error
		changed := false
		for name, field := range map[string]**bool{
			"visible": &change.Visible,
			"focused": &change.Focused,
			"online":  &change.Online,
		} {
			if !c.IsSet(name) {
				continue
			}
			*field, err = parseBool(name, c.String(name))
			if err != nil {
				return err
			}
			changed = true
		}
		var state restdata.Presence
		if changed {
			state, err = client.SetPresence(context.Background(), change)
		} else {
			state, err = client.Presence(context.Background())
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "visible=%v focused=%v online=%v\n",
			boolValue(state.Visible), boolValue(state.Focused), boolValue(state.Online))
		return nil
	},
}

var events = cli.Command{
	Name:  "events",
	Usage: "print cache events until interrupted",
	Action: func(c *cli.Context) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()
		return client.Events(ctx, func(ev restdata.Event) {
			fmt.Fprintf(c.App.Writer, "%v %v\n", ev.Kind, strings.Join(ev.Keys, " "))
		})
	},
}

func newApp(out io.Writer) *cli.App {
	app := cli.NewApp()
	app.Name = "coffeetip"
	app.Usage = "talk to a coffeetipd server"
	app.Writer = out
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "url",
			Value:  "http://localhost:5980/",
			Usage:  "base `URL` of the coffeetipd REST interface",
			EnvVar: "COFFEETIP_URL",
		},
	}
	app.Commands = []cli.Command{
		info,
		creator,
		coffees,
		balance,
		tip,
		register,
		profile,
		profiles,
		available,
		presence,
		events,
	}
	app.Before = func(c *cli.Context) (err error) {
		client, err = restclient.New(context.Background(), c.String("url"))
		return
	}
	return app
}

func main() {
	newApp(os.Stdout).RunAndExitOnError()
}
