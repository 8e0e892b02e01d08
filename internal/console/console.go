// Package console implements the interactive operator console. It keeps a
// synchronized local snapshot of every server collection, applies mutations
// optimistically through the synchronizer, and simulates call routing either
// locally or through the server.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/btafoya/pbxadmin/internal/client"
	"github.com/btafoya/pbxadmin/internal/collection"
	"github.com/btafoya/pbxadmin/internal/models"
	"github.com/btafoya/pbxadmin/internal/routing"
)

// Console is the interactive command loop
type Console struct {
	client *client.Client
	views  map[string]view
	names  []string // display order
	routes *collection.Syncer[*models.RoutingRule]
	in     io.Reader
	out    io.Writer
}

// New creates a console bound to a server client
func New(c *client.Client, in io.Reader, out io.Writer) *Console {
	con := &Console{
		client: c,
		views:  make(map[string]view),
		in:     in,
		out:    out,
	}

	extensions := newCollectionView("extensions",
		client.NewCollection[*models.Extension](c, "/api/v1/extensions", "extensions"),
		func() *models.Extension { return &models.Extension{} },
		[]string{"NUMBER", "NAME", "VM"},
		func(e *models.Extension) []string {
			return []string{e.Number, e.Name, onOff(e.VoicemailEnabled)}
		})

	trunks := newCollectionView("trunks",
		client.NewCollection[*models.Trunk](c, "/api/v1/trunks", "trunks"),
		func() *models.Trunk { return &models.Trunk{} },
		[]string{"NAME", "GATEWAY", "REGISTER"},
		func(t *models.Trunk) []string {
			return []string{t.Name, fmt.Sprintf("%s:%d", t.Host, t.Port), onOff(t.Register)}
		})

	dids := newCollectionView("dids",
		client.NewCollection[*models.DID](c, "/api/v1/dids", "dids"),
		func() *models.DID { return &models.DID{} },
		[]string{"NUMBER", "NAME", "DESTINATION"},
		func(d *models.DID) []string {
			dest := "-"
			if d.Destination != nil {
				dest = d.Destination.String()
			}
			return []string{d.Number, d.Name, dest}
		})

	ringGroups := newCollectionView("ring-groups",
		client.NewCollection[*models.RingGroup](c, "/api/v1/ring-groups", "ring_groups"),
		func() *models.RingGroup { return &models.RingGroup{} },
		[]string{"NAME", "STRATEGY", "MEMBERS", "TIMEOUT"},
		func(g *models.RingGroup) []string {
			return []string{g.Name, g.Strategy, strconv.Itoa(len(g.Extensions)), strconv.Itoa(g.RingTimeout) + "s"}
		})

	sipProfiles := newCollectionView("sip-profiles",
		client.NewCollection[*models.SipProfile](c, "/api/v1/sip-profiles", "sip_profiles"),
		func() *models.SipProfile { return &models.SipProfile{} },
		[]string{"NAME", "BIND", "DOMAIN", "TRANSPORTS"},
		func(p *models.SipProfile) []string {
			return []string{p.Name, fmt.Sprintf("%s:%d", p.BindAddress, p.BindPort), p.Domain, strings.Join(p.Transports, ",")}
		})

	codecs := newCollectionView("codecs",
		client.NewCollection[*models.Codec](c, "/api/v1/codecs", "codecs"),
		func() *models.Codec { return &models.Codec{} },
		[]string{"NAME", "PT", "RATE"},
		func(cd *models.Codec) []string {
			return []string{cd.Name, strconv.Itoa(cd.PayloadType), strconv.Itoa(cd.ClockRate)}
		})

	routes := newCollectionView("routes",
		client.NewCollection[*models.RoutingRule](c, "/api/v1/routes", "routes"),
		func() *models.RoutingRule { return &models.RoutingRule{} },
		[]string{"NAME", "PATTERN", "ACTION", "DESTINATION", "CONT"},
		func(r *models.RoutingRule) []string {
			return []string{r.Name, r.Pattern, string(r.Action), r.Destination.String(), onOff(r.ContinueOnMatch)}
		})

	con.routes = routes.syncer

	for _, v := range []view{extensions, trunks, dids, ringGroups, sipProfiles, codecs, routes} {
		con.views[v.Name()] = v
		con.names = append(con.names, v.Name())
	}

	return con
}

// RefreshAll pulls every collection from the server
func (con *Console) RefreshAll(ctx context.Context) error {
	for _, name := range con.names {
		if err := con.views[name].Refresh(ctx); err != nil {
			return fmt.Errorf("refresh %s: %w", name, err)
		}
	}
	return nil
}

// Run reads and executes commands until exit or EOF
func (con *Console) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(con.in)
	fmt.Fprintln(con.out, "pbxctl console. Type 'help' for available commands.")

	for {
		fmt.Fprint(con.out, "pbxctl> ")
		if !scanner.Scan() {
			fmt.Fprintln(con.out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		done, err := con.Execute(ctx, line)
		if err != nil {
			fmt.Fprintf(con.out, "error: %v\n", err)
		}
		if done {
			return nil
		}
	}
}

// Execute runs one command line. It returns true when the console should
// exit.
func (con *Console) Execute(ctx context.Context, line string) (bool, error) {
	parts := strings.Fields(line)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		con.printHelp()
		return false, nil
	case "exit", "quit", "q":
		return true, nil
	case "show":
		return false, con.cmdShow(ctx, args)
	case "refresh":
		return false, con.RefreshAll(ctx)
	case "move":
		return false, con.cmdMove(ctx, args)
	case "enable":
		return false, con.cmdSetEnabled(ctx, args, true)
	case "disable":
		return false, con.cmdSetEnabled(ctx, args, false)
	case "rm":
		return false, con.cmdRemove(ctx, args)
	case "add":
		return false, con.cmdAdd(ctx, line)
	case "test":
		return false, con.cmdTest(ctx, args)
	case "sync":
		return false, con.cmdSync(ctx, args)
	default:
		return false, fmt.Errorf("unknown command: %s. Type 'help' for available commands", cmd)
	}
}

func (con *Console) cmdShow(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("show requires a target (%s, status)", strings.Join(con.names, ", "))
	}

	if args[0] == "status" {
		stats, err := con.client.Stats(ctx)
		if err != nil {
			return err
		}
		for key, value := range stats {
			fmt.Fprintf(con.out, "%s: %s\n", key, string(value))
		}
		return nil
	}

	v, err := con.lookup(args[0])
	if err != nil {
		return err
	}
	return v.Render(con.out)
}

func (con *Console) cmdMove(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: move <collection> <id> <index>")
	}
	v, err := con.lookup(args[0])
	if err != nil {
		return err
	}
	index, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("invalid index %q", args[2])
	}
	if err := v.Move(ctx, args[1], index); err != nil {
		return err
	}
	return v.Render(con.out)
}

func (con *Console) cmdSetEnabled(ctx context.Context, args []string, enabled bool) error {
	if len(args) != 2 {
		verb := "enable"
		if !enabled {
			verb = "disable"
		}
		return fmt.Errorf("usage: %s <collection> <id>", verb)
	}
	v, err := con.lookup(args[0])
	if err != nil {
		return err
	}
	return v.SetEnabled(ctx, args[1], enabled)
}

func (con *Console) cmdRemove(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: rm <collection> <id>")
	}
	v, err := con.lookup(args[0])
	if err != nil {
		return err
	}
	return v.Remove(ctx, args[1])
}

// cmdAdd creates a resource from an inline JSON document:
// add routes {"name": "office hours", "pattern": "^\\+1", ...}
func (con *Console) cmdAdd(ctx context.Context, line string) error {
	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "add"))
	name, doc, found := strings.Cut(rest, " ")
	if !found || !strings.HasPrefix(strings.TrimSpace(doc), "{") {
		return fmt.Errorf("usage: add <collection> <json>")
	}

	v, err := con.lookup(name)
	if err != nil {
		return err
	}

	adder, ok := v.(interface {
		Add(ctx context.Context, doc []byte) (string, error)
	})
	if !ok {
		return fmt.Errorf("%s does not support add", name)
	}

	id, err := adder.Add(ctx, []byte(strings.TrimSpace(doc)))
	if err != nil {
		return err
	}
	fmt.Fprintf(con.out, "created %s\n", id)
	return nil
}

func (con *Console) cmdTest(ctx context.Context, args []string) error {
	local := false
	if len(args) > 0 && args[0] == "-local" {
		local = true
		args = args[1:]
	}
	if len(args) != 2 {
		return fmt.Errorf("usage: test [-local] <caller_id> <destination>")
	}

	call := routing.CallContext{CallerID: args[0], Destination: args[1]}

	if local {
		result := routing.NewEvaluator().Evaluate(con.routes.Snapshot().Items(), call)
		con.printMatch(result.Matched, result.RuleName, result.RuleID, string(result.Action), result.Destination.String(), "local snapshot")
		return nil
	}

	result, err := con.client.TestRoute(ctx, call)
	if err != nil {
		return err
	}
	dest := ""
	if result.Destination != nil {
		dest = result.Destination.String()
	}
	con.printMatch(result.Matched, result.RouteName, result.RouteID, result.Action, dest, "server")
	return nil
}

func (con *Console) printMatch(matched bool, name, id, action, dest, source string) {
	if !matched {
		fmt.Fprintf(con.out, "no rule matched (%s)\n", source)
		return
	}
	fmt.Fprintf(con.out, "matched %q (%s): action=%s destination=%s (%s)\n",
		name, shortID(id), action, dest, source)
}

func (con *Console) cmdSync(ctx context.Context, args []string) error {
	if len(args) != 1 || args[0] != "dids" {
		return fmt.Errorf("usage: sync dids")
	}
	created, updated, err := con.client.SyncDIDs(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(con.out, "synced: %d created, %d updated\n", created, updated)
	return con.views["dids"].Refresh(ctx)
}

// lookup resolves a collection name, accepting a few aliases
func (con *Console) lookup(name string) (view, error) {
	key := strings.ToLower(name)
	switch key {
	case "extension", "ext":
		key = "extensions"
	case "trunk":
		key = "trunks"
	case "did":
		key = "dids"
	case "ring-group", "ringgroups", "groups":
		key = "ring-groups"
	case "sip-profile", "profiles", "profile":
		key = "sip-profiles"
	case "codec":
		key = "codecs"
	case "route", "rules":
		key = "routes"
	}

	v, ok := con.views[key]
	if !ok {
		return nil, fmt.Errorf("unknown collection: %s (%s)", name, strings.Join(con.names, ", "))
	}
	return v, nil
}

func (con *Console) printHelp() {
	fmt.Fprint(con.out, `Available commands:
  show <collection>            List a collection in evaluation order
  show status                  Show server status and collection sizes
  add <collection> <json>      Create a resource from a JSON document
  move <collection> <id> <n>   Move a resource to position n
  enable <collection> <id>     Enable a resource
  disable <collection> <id>    Disable a resource
  rm <collection> <id>         Delete a resource
  test <caller> <destination>  Simulate a call on the server
  test -local <caller> <dest>  Simulate a call against the local snapshot
  sync dids                    Import provider-owned numbers
  refresh                      Re-fetch every collection
  help, ?                      Show this help
  exit, quit, q                Leave the console

Collections: `+strings.Join(con.names, ", ")+`
Ids may be abbreviated to any unique prefix.
`)
}
