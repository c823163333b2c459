package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"fot/internal/compose"
	"fot/internal/config"
	"fot/internal/geocode"
	"fot/internal/ics"
	"fot/internal/location"
	appLog "fot/internal/log"
	"fot/internal/model"
	"fot/internal/preview"
	"fot/internal/spond"
	"fot/internal/tabular"
	"fot/internal/template"
)

const spondTimeout = 30 * time.Second

func (r *runner) commands() []*cli.Command {
	eventFlags := func() []cli.Flag {
		return []cli.Flag{
			&cli.StringFlag{Name: "heading", Usage: "event title, e.g. 'Match vs Team X'"},
			&cli.StringFlag{Name: "date", Usage: "event date (YYYY-MM-DD)"},
			&cli.StringFlag{Name: "time", Usage: "kick-off time (HH:MM), default 10:00"},
			&cli.IntFlag{Name: "duration", Usage: "duration in minutes (default 75)"},
			&cli.StringFlag{Name: "description", Usage: "event description (appended to home/away defaults)"},
			&cli.StringFlag{Name: "location", Usage: "venue to geocode, or 'lat,lng'"},
			&cli.IntFlag{Name: "meetup-prior", Usage: "meetup minutes before kick-off (default 30)"},
			&cli.BoolFlag{Name: "dry-run", Usage: "show what would be sent without sending"},
		}
	}

	create := &cli.Command{
		Name:  "create",
		Usage: "create an availability request in Spond",
		Description: "Use --home for home matches (Rothamsted Park, 10:00 KO, 75 min, blue kit info).\n" +
			"Use --away for away matches (10:00-13:30 block, TBC heading/description).\n" +
			"All defaults can be overridden with explicit flags.",
		Flags: append(eventFlags(),
			&cli.BoolFlag{Name: "home", Usage: "home match preset"},
			&cli.BoolFlag{Name: "away", Usage: "away match preset"},
			&cli.StringFlag{Name: "group-id", Usage: "group id (uses the configured default if not set)"},
			&cli.StringFlag{Name: "subgroup-id", Usage: "subgroup id"},
			&cli.StringFlag{Name: "repeat", Usage: "RRULE for a series, e.g. 'FREQ=WEEKLY;COUNT=6'"},
			&cli.StringFlag{Name: "ics", Usage: "also write the event(s) to this .ics file or directory"},
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "skip the confirmation prompt"},
		),
		Action: r.create,
	}

	batch := &cli.Command{
		Name:      "batch-create",
		Usage:     "create multiple events from a CSV file",
		ArgsUsage: "FILE",
		Description: "CSV columns: heading, date (YYYY-MM-DD), time (HH:MM), duration_mins, location,\n" +
			"description and optionally meetup_prior.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "group-id", Usage: "group id (uses the configured default if not set)"},
			&cli.StringFlag{Name: "ics", Usage: "also write the events to this .ics file or directory"},
			&cli.BoolFlag{Name: "dry-run", Usage: "show what would be created without creating"},
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "skip the confirmation prompt"},
		},
		Action: r.batchCreate,
	}

	update := &cli.Command{
		Name:      "update",
		Usage:     "change fields of an existing event",
		ArgsUsage: "EVENT_ID",
		Flags:     eventFlags(),
		Action:    r.update,
	}

	cmds := []*cli.Command{
		create,
		batch,
		update,
		{
			Name:   "groups",
			Usage:  "list your Spond groups and their ids",
			Action: r.groups,
		},
		{
			Name:  "events",
			Usage: "list events from Spond",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "group-id", Usage: "filter by group id"},
				&cli.BoolFlag{Name: "all", Usage: "include past events"},
				&cli.IntFlag{Name: "max", Value: 20, Usage: "max events to retrieve"},
			},
			Action: r.events,
		},
		{
			Name:  "config",
			Usage: "configure Spond credentials and default group",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "username", Usage: "Spond login email"},
				&cli.StringFlag{Name: "password", Usage: "Spond password"},
			},
			Action: r.configure,
		},
		{
			Name:      "config-set",
			Usage:     "set a config value (" + strings.Join(config.SettableKeys(), ", ") + ")",
			ArgsUsage: "KEY VALUE",
			Action:    r.configSet,
		},
	}
	for _, c := range cmds {
		c.OnUsageError = usageError
	}
	return cmds
}

func (r *runner) create(c *cli.Context) error {
	tmpl, err := template.Select(c.Bool("home"), c.Bool("away"))
	if err != nil {
		return err
	}
	groupID, err := r.cfg.RequireGroup(c.String("group-id"))
	if err != nil {
		return err
	}
	subgroupID := c.String("subgroup-id")
	if subgroupID == "" {
		subgroupID = r.cfg.SubgroupID
	}

	composer, closeProvider, err := r.composer(groupID, subgroupID)
	if err != nil {
		return err
	}
	defer closeProvider()

	raw := rawInput(c)
	var specs []model.EventSpec
	if rule := c.String("repeat"); rule != "" {
		specs, err = composer.ComposeSeries(c.Context, raw, tmpl, rule)
	} else {
		var spec model.EventSpec
		spec, err = composer.Compose(c.Context, raw, tmpl)
		specs = []model.EventSpec{spec}
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(r.out)
	if len(specs) == 1 {
		preview.Event(r.out, specs[0])
	} else {
		fmt.Fprintf(r.out, "  Series of %d events:\n", len(specs))
		preview.Lines(r.out, specs)
	}

	if err := r.exportICS(c.String("ics"), specs); err != nil {
		return err
	}
	if c.Bool("dry-run") {
		fmt.Fprintln(r.out, "\n  [DRY RUN] Event not created.")
		return nil
	}

	prompt := "Create this event?"
	if len(specs) > 1 {
		prompt = fmt.Sprintf("Create all %d events?", len(specs))
	}
	if !c.Bool("yes") && !r.confirm(prompt) {
		fmt.Fprintln(r.out, "  Cancelled.")
		return nil
	}
	return r.submit(c.Context, specs)
}

func (r *runner) batchCreate(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("%w: batch-create takes exactly one FILE", errUsage)
	}
	groupID, err := r.cfg.RequireGroup(c.String("group-id"))
	if err != nil {
		return err
	}

	rows, err := tabular.ReadFile(c.Args().First())
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	if len(rows) == 0 {
		fmt.Fprintln(r.out, "No events found in CSV.")
		return nil
	}

	composer, closeProvider, err := r.composer(groupID, r.cfg.SubgroupID)
	if err != nil {
		return err
	}
	defer closeProvider()

	res := composer.ComposeBatch(c.Context, rows, r.cfg.Geocoding.Concurrency)

	fmt.Fprintf(r.out, "\nFound %d event(s) to create:\n\n", len(res.Specs))
	preview.Lines(r.out, res.Specs)
	if !res.OK() {
		fmt.Fprintf(r.out, "\n%d row(s) could not be read:\n", len(res.Errors))
		for _, e := range res.Errors {
			fmt.Fprintf(r.out, "  %v\n", e)
		}
		return cli.Exit(fmt.Sprintf("%d of %d rows invalid; nothing was created", len(res.Errors), len(rows)), 2)
	}

	if err := r.exportICS(c.String("ics"), res.Specs); err != nil {
		return err
	}
	if c.Bool("dry-run") {
		fmt.Fprintln(r.out, "\n[DRY RUN] No events created.")
		return nil
	}
	if !c.Bool("yes") && !r.confirm(fmt.Sprintf("Create all %d events?", len(res.Specs))) {
		fmt.Fprintln(r.out, "Cancelled.")
		return nil
	}
	return r.submit(c.Context, res.Specs)
}

func (r *runner) update(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("%w: update takes exactly one EVENT_ID", errUsage)
	}
	eventID := c.Args().First()

	fields, err := r.updateFields(c)
	if err != nil {
		return err
	}
	if fields.Empty() {
		return fmt.Errorf("%w: nothing to update", errUsage)
	}

	changes := fields.Map()
	keys := make([]string, 0, len(changes))
	for k := range changes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(r.out, "\n  Event %s:\n", eventID)
	for _, k := range keys {
		if k == "location" {
			fmt.Fprintf(r.out, "    %s = %s\n", k, fields.Location.Address)
			continue
		}
		fmt.Fprintf(r.out, "    %s = %v\n", k, changes[k])
	}

	if c.Bool("dry-run") {
		fmt.Fprintln(r.out, "\n  [DRY RUN] Event not updated.")
		return nil
	}

	client, err := r.spond()
	if err != nil {
		return err
	}
	if _, err := client.Update(c.Context, eventID, fields); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "\n  Event updated! ID: %s\n", eventID)
	return nil
}

// updateFields turns the flags that were actually passed into a partial edit.
// A new kick-off needs both --date and --time; --duration and --meetup-prior
// need them too.
func (r *runner) updateFields(c *cli.Context) (spond.UpdateFields, error) {
	var f spond.UpdateFields

	if c.IsSet("heading") {
		h := strings.TrimSpace(c.String("heading"))
		if h == "" {
			return f, &compose.FieldError{Field: "heading", Err: compose.ErrMissingField}
		}
		f.Heading = &h
	}

	if c.IsSet("date") || c.IsSet("time") {
		if !c.IsSet("date") || !c.IsSet("time") {
			return f, fmt.Errorf("%w: --date and --time must be given together", errUsage)
		}
		zone, err := r.cfg.Location()
		if err != nil {
			return f, err
		}
		start, err := compose.StartAt(c.String("date"), c.String("time"), zone)
		if err != nil {
			return f, err
		}
		f.Start = &start
	}

	if c.IsSet("duration") {
		if f.Start == nil {
			return f, fmt.Errorf("%w: --duration needs --date and --time", errUsage)
		}
		d := c.Int("duration")
		if d <= 0 {
			return f, &compose.FieldError{Field: "duration", Value: fmt.Sprint(d), Err: compose.ErrInvalidValue}
		}
		end := f.Start.Add(time.Duration(d) * time.Minute)
		f.End = &end
	}

	if c.IsSet("meetup-prior") {
		if f.Start == nil {
			return f, fmt.Errorf("%w: --meetup-prior needs --date and --time", errUsage)
		}
		lead := c.Int("meetup-prior")
		if lead < 0 {
			return f, &compose.FieldError{Field: "meetup_prior", Value: fmt.Sprint(lead), Err: compose.ErrInvalidValue}
		}
		f.MeetupPrior = &lead
	}

	if c.IsSet("description") {
		d := c.String("description")
		f.Description = &d
	}

	if q := strings.TrimSpace(c.String("location")); q != "" {
		provider, closeProvider, err := r.provider()
		if err != nil {
			return f, err
		}
		defer closeProvider()
		f.Location = location.NewResolver(provider, r.cfg.Geocoding.Country).Resolve(c.Context, q, nil, nil)
	}
	return f, nil
}

func (r *runner) groups(c *cli.Context) error {
	client, err := r.spond()
	if err != nil {
		return err
	}
	groups, err := client.Groups(c.Context)
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		fmt.Fprintln(r.out, "No groups found.")
		return nil
	}
	for _, g := range groups {
		fmt.Fprintf(r.out, "\n  Group: %s\n", g.Name)
		fmt.Fprintf(r.out, "  ID:    %s\n", g.ID)
		for _, sg := range g.SubGroups {
			fmt.Fprintf(r.out, "    Subgroup: %s  ID: %s\n", sg.Name, sg.ID)
		}
		fmt.Fprintf(r.out, "  Members: %d\n", len(g.Members))
	}
	return nil
}

func (r *runner) events(c *cli.Context) error {
	client, err := r.spond()
	if err != nil {
		return err
	}
	groupID := c.String("group-id")
	if groupID == "" {
		groupID = r.cfg.GroupID
	}
	var minStart time.Time
	if !c.Bool("all") {
		minStart = r.now()
	}

	events, err := client.Events(c.Context, groupID, minStart, c.Int("max"))
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Fprintln(r.out, "No events found.")
		return nil
	}
	for _, e := range events {
		start := e.StartTimestamp
		if len(start) > 16 {
			start = start[:16]
		}
		heading := e.Heading
		if heading == "" {
			heading = "(no title)"
		}
		fmt.Fprintf(r.out, "\n  %s  %s\n", strings.Replace(start, "T", " ", 1), heading)
		fmt.Fprintf(r.out, "  ID: %s\n", e.ID)
		fmt.Fprintf(r.out, "  Accepted: %d  Declined: %d\n", len(e.Responses.AcceptedIDs), len(e.Responses.DeclinedIDs))
		if e.Location.Address != "" {
			fmt.Fprintf(r.out, "  Location: %s\n", e.Location.Address)
		}
		if desc := []rune(e.Description); len(desc) > 0 {
			if len(desc) > 100 {
				desc = append(desc[:100], []rune("...")...)
			}
			fmt.Fprintf(r.out, "  Description: %s\n", strings.ReplaceAll(string(desc), "\n", " "))
		}
	}
	return nil
}

// configure stores credentials, then picks the default group when the
// account has exactly one.
func (r *runner) configure(c *cli.Context) error {
	cfg, err := config.LoadFile(r.cfgPath)
	if err != nil {
		return err
	}

	username := c.String("username")
	if username == "" {
		username = r.ask("Spond email")
	}
	password := c.String("password")
	if password == "" {
		password = r.ask("Spond password")
	}
	if username == "" || password == "" {
		return config.ErrMissingCredentials
	}
	cfg.SpondUsername, cfg.SpondPassword = username, password
	if err := cfg.Save(r.cfgPath); err != nil {
		return err
	}
	fmt.Fprintln(r.out, "Credentials saved. Fetching your groups...")

	client := spond.NewClient(r.cfg.SpondAPIURL, username, password, spondTimeout)
	groups, err := client.Groups(c.Context)
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		fmt.Fprintln(r.out, "No groups found. You can set a group id later with: fot config-set group_id <ID>")
		return nil
	}

	fmt.Fprintln(r.out)
	for i, g := range groups {
		fmt.Fprintf(r.out, "  %d. %s (%d members)  ID: %s\n", i+1, g.Name, len(g.Members), g.ID)
	}
	if len(groups) > 1 {
		fmt.Fprintln(r.out, "\nSet your default group with: fot config-set group_id <ID>")
		return nil
	}

	cfg.GroupID, cfg.GroupName = groups[0].ID, groups[0].Name
	if err := cfg.Save(r.cfgPath); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "\nOnly one group found, default group set to: %s\n", groups[0].Name)
	return nil
}

func (r *runner) configSet(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("%w: config-set takes KEY VALUE", errUsage)
	}
	key, value := c.Args().Get(0), c.Args().Get(1)

	cfg, err := config.LoadFile(r.cfgPath)
	if err != nil {
		return err
	}
	if err := cfg.Set(key, value); err != nil {
		return fmt.Errorf("%w: %v (keys: %s)", errUsage, err, strings.Join(config.SettableKeys(), ", "))
	}
	if err := cfg.Save(r.cfgPath); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Set %s.\n", strings.ToLower(key))
	return nil
}

func rawInput(c *cli.Context) model.RawEventInput {
	raw := model.RawEventInput{
		Heading:       c.String("heading"),
		Date:          c.String("date"),
		LocationQuery: c.String("location"),
	}
	if c.IsSet("time") {
		raw.Time = model.Ptr(c.String("time"))
	}
	if c.IsSet("duration") {
		raw.DurationMinutes = model.Ptr(c.Int("duration"))
	}
	if c.IsSet("meetup-prior") {
		raw.LeadMinutes = model.Ptr(c.Int("meetup-prior"))
	}
	if c.IsSet("description") {
		raw.Description = model.Ptr(c.String("description"))
	}
	return raw
}

// provider builds the configured geocoder. The returned func releases the
// cache database when one is in use.
func (r *runner) provider() (geocode.Provider, func(), error) {
	p, err := geocode.NewProviderFromConfig(r.cfg.Geocoding)
	if err != nil {
		return nil, nil, err
	}
	release := func() {}
	if cache, ok := p.(*geocode.Cache); ok {
		release = func() {
			if err := cache.Close(); err != nil {
				appLog.Warn("geocode cache close failed", "err", err)
			}
		}
	}
	appLog.Debug("geocoder selected", "provider", p.Name(), "cache", r.cfg.Geocoding.CachePath)
	return p, release, nil
}

func (r *runner) composer(groupID, subgroupID string) (*compose.Composer, func(), error) {
	zone, err := r.cfg.Location()
	if err != nil {
		return nil, nil, err
	}
	p, release, err := r.provider()
	if err != nil {
		return nil, nil, err
	}
	resolver := location.NewResolver(p, r.cfg.Geocoding.Country)
	return compose.New(resolver, compose.Options{
		GroupID:    groupID,
		SubgroupID: subgroupID,
		HostIDs:    r.cfg.HostIDs,
		Zone:       zone,
	}), release, nil
}

func (r *runner) spond() (*spond.Client, error) {
	username, password, err := r.cfg.Credentials()
	if err != nil {
		return nil, err
	}
	return spond.NewClient(r.cfg.SpondAPIURL, username, password, spondTimeout), nil
}

// submit creates every event in order. A failure is reported and the rest
// are still attempted.
func (r *runner) submit(ctx context.Context, specs []model.EventSpec) error {
	client, err := r.spond()
	if err != nil {
		return err
	}

	var failed int
	var firstErr error
	for _, spec := range specs {
		id, err := client.Create(ctx, spec)
		if err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
			fmt.Fprintf(r.out, "  Failed: %s: %v\n", spec.Heading, err)
			continue
		}
		if len(specs) == 1 {
			fmt.Fprintf(r.out, "\n  Event created! ID: %s\n", id)
		} else {
			fmt.Fprintf(r.out, "  Created: %s -> ID: %s\n", spec.Heading, id)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d events not created: %w", failed, len(specs), firstErr)
	}
	return nil
}

// exportICS writes specs when path is set. A directory gets the default
// file name.
func (r *runner) exportICS(path string, specs []model.EventSpec) error {
	if path == "" {
		return nil
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, ics.DefaultFilename(specs))
	}
	if err := ics.WriteFile(path, specs, r.now()); err != nil {
		return fmt.Errorf("write calendar: %w", err)
	}
	fmt.Fprintf(r.out, "\n  Calendar written: %s\n", path)
	return nil
}

func (r *runner) confirm(prompt string) bool {
	switch strings.ToLower(r.ask(prompt + " [y/N]")) {
	case "y", "yes":
		return true
	}
	return false
}

func (r *runner) ask(prompt string) string {
	fmt.Fprintf(r.out, "\n  %s: ", prompt)
	line, _ := r.in.ReadString('\n')
	return strings.TrimSpace(line)
}
