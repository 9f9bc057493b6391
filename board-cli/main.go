package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	log "github.com/sirupsen/logrus"

	"taskboard/board-api/domain"
	"taskboard/client"
	"taskboard/client/state"
)

const usage = `usage: board-cli [flags] <command> [args]

commands:
  open [board-id]        open a board, creating one on first use
  show                   show the current board
  add -name N [...]      add a task
  edit -id ID [...]      edit a task
  rm -id ID              delete a task
  rename [-name N] [-description D]
  delete-board           delete the current board
`

func main() {
	apiURL := flag.String("api", envOr("BOARD_API_URL", "http://localhost:8080/api"), "board API base URL")
	statePath := flag.String("state", "", "state file (defaults to the user config dir)")
	timeout := flag.Duration("timeout", 10*time.Second, "request timeout")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	path := *statePath
	if path == "" {
		p, err := client.DefaultFileStorePath()
		if err != nil {
			log.Fatalf("state path: %v", err)
		}
		path = p
	}
	c := client.New(*apiURL, client.NewFileStore(path))
	session := state.NewSession(c)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, os.Stdout, c, session, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, out io.Writer, c *client.Client, s *state.Session, args []string) error {
	cmd, rest := args[0], args[1:]

	if cmd == "open" {
		boardID := ""
		if len(rest) > 0 {
			boardID = rest[0]
		} else {
			id, err := state.Entry(ctx, c)
			if err != nil {
				return err
			}
			boardID = id
		}
		if err := s.Load(ctx, boardID); err != nil {
			return errors.New(s.State().Error)
		}
		return render(out, s.State())
	}

	id, ok, err := c.Store.Get(client.LastBoardIDKey)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("no board open; run `board-cli open` first")
	}
	if err := s.Load(ctx, id); err != nil {
		return errors.New(s.State().Error)
	}

	switch cmd {
	case "show":
	case "add", "edit":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		taskID := fs.String("id", "", "task id (edit only)")
		name := fs.String("name", "", "task name")
		desc := fs.String("description", "", "task description")
		icon := fs.String("icon", "", "task icon")
		status := fs.String("status", "", "task status")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if cmd == "edit" && *taskID == "" {
			return errors.New("edit requires -id")
		}
		in := client.TaskInput{Name: *name, Description: *desc, Icon: domain.Icon(*icon), Status: domain.Status(*status)}
		if cmd == "edit" {
			in = mergeTask(s.State(), *taskID, in)
		}
		if _, err := s.SaveTask(ctx, *taskID, in); err != nil {
			return err
		}
	case "rm":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		taskID := fs.String("id", "", "task id")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if err := s.RemoveTask(ctx, *taskID); err != nil {
			return err
		}
	case "rename":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		name := fs.String("name", "", "board name")
		desc := fs.String("description", "", "board description")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if err := s.RenameBoard(ctx, *name, *desc); err != nil {
			return err
		}
	case "delete-board":
		if err := s.DeleteBoard(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "board deleted")
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return render(out, s.State())
}

// mergeTask fills fields left empty on the command line from the stored task.
func mergeTask(st state.State, taskID string, in client.TaskInput) client.TaskInput {
	if st.Board == nil {
		return in
	}
	for _, t := range st.Board.Tasks {
		if t.ID != taskID {
			continue
		}
		if in.Name == "" {
			in.Name = t.Name
		}
		if in.Description == "" {
			in.Description = t.Description
		}
		if in.Icon == "" {
			in.Icon = t.Icon
		}
		if in.Status == "" {
			in.Status = t.Status
		}
	}
	return in
}

func render(out io.Writer, st state.State) error {
	if st.Board == nil {
		return errors.New("no board loaded")
	}
	b := st.Board
	fmt.Fprintf(out, "%s\n%s\n", b.Name, b.Description)
	fmt.Fprintf(out, "Last updated: %s\n", domain.FormatDate(b.UpdatedAt))
	fmt.Fprintf(out, "Total Tasks: %d\n\n", len(b.Tasks))

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ICON\tNAME\tSTATUS\tCREATED\tID")
	for _, t := range st.SortedTasks() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.Icon, t.Name, t.Status, domain.FormatDate(t.CreatedAt), t.ID)
	}
	return tw.Flush()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
