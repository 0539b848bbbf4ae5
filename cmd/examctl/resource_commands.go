package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/owlenglish/examclient"
)

func init() {
	for _, r := range []struct {
		name string
		open func(c *examclient.Client, parent int64) examclient.Resource
		desc string
	}{
		{"exams", func(c *examclient.Client, _ int64) examclient.Resource { return c.Exams() }, "List, show, create or delete exams."},
		{"questions", func(c *examclient.Client, _ int64) examclient.Resource { return c.Questions() }, "List, show, create or delete questions."},
		{"users", func(c *examclient.Client, _ int64) examclient.Resource { return c.Users() }, "Administer users."},
		{"skills", func(c *examclient.Client, _ int64) examclient.Resource { return c.Skills() }, "List, show, create or delete skills."},
		{"tests", func(c *examclient.Client, exam int64) examclient.Resource { return c.ExamTests(exam) }, "Tests of one exam (-parent exam id)."},
		{"sections", func(c *examclient.Client, skill int64) examclient.Resource { return c.Sections(skill) }, "Sections of one skill (-parent skill id)."},
	} {
		register(command{
			name:        r.name,
			usage:       r.name + " [-parent id] list | get ID | create FILE | delete ID",
			description: r.desc,
			run: func(ctx context.Context, a *app, args []string) error {
				return runResource(ctx, a, r.name, r.open, args)
			},
		})
	}
	register(command{
		name:        "upload",
		usage:       "upload FILE | upload -delete NAME",
		description: "Upload or delete a question image.",
		run:         runUpload,
	})
}

func runResource(ctx context.Context, a *app, name string, open func(*examclient.Client, int64) examclient.Resource, args []string) error {
	fs := a.newFlagSet(name)
	parent := fs.Int64("parent", 0, "parent exam or skill id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return fmt.Errorf("%s: missing action", name)
	}
	res := open(a.client, *parent)

	switch action := fs.Arg(0); action {
	case "list":
		items, err := res.List(ctx, url.Values{})
		if err != nil {
			return err
		}
		for _, item := range items {
			a.printf("%s\n", item)
		}
		return nil

	case "get", "delete":
		if fs.NArg() != 2 {
			return fmt.Errorf("%s %s: expected one id", name, action)
		}
		id, err := strconv.ParseInt(fs.Arg(1), 10, 64)
		if err != nil {
			return fmt.Errorf("%s %s: bad id %q", name, action, fs.Arg(1))
		}
		if action == "delete" {
			if err := res.Delete(ctx, id); err != nil {
				return err
			}
			a.printf("Deleted %d\n", id)
			return nil
		}
		var item json.RawMessage
		if err := res.Get(ctx, id, &item); err != nil {
			return err
		}
		a.printf("%s\n", prettyJSON(item))
		return nil

	case "create":
		if fs.NArg() != 2 {
			return fmt.Errorf("%s create: expected a JSON file, or - for stdin", name)
		}
		body, err := a.readJSONArg(fs.Arg(1))
		if err != nil {
			return err
		}
		var created json.RawMessage
		if err := res.Create(ctx, body, &created); err != nil {
			return err
		}
		a.printf("%s\n", prettyJSON(created))
		return nil
	}
	return fmt.Errorf("%s: unknown action %q", name, fs.Arg(0))
}

func runUpload(ctx context.Context, a *app, args []string) error {
	fs := a.newFlagSet("upload")
	del := fs.String("delete", "", "stored file name to delete")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *del != "" {
		if err := a.client.DeleteImage(ctx, *del); err != nil {
			return err
		}
		a.printf("Deleted %s\n", *del)
		return nil
	}
	if fs.NArg() != 1 {
		return errors.New("upload: expected one file")
	}

	// #nosec G304 -- path is from CLI args
	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer f.Close()

	img, err := a.client.UploadImage(ctx, filepath.Base(f.Name()), f)
	if err != nil {
		return err
	}
	a.printf("%s %s (%d bytes)\n", img.Filename, img.URL, img.Size)
	return nil
}

func (a *app) readJSONArg(arg string) (json.RawMessage, error) {
	var (
		data []byte
		err  error
	)
	if arg == "-" {
		data, err = io.ReadAll(a.in)
	} else {
		// #nosec G304 -- path is from CLI args
		data, err = os.ReadFile(arg)
	}
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if !json.Valid(data) {
		return nil, errors.New("body is not valid JSON")
	}
	return json.RawMessage(data), nil
}
