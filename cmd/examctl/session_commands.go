package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/owlenglish/examclient/session"
)

func init() {
	register(command{
		name:        "session",
		usage:       "session dump [-show-token]",
		description: "Print the persisted session keys.",
		run:         runSession,
	})
}

func runSession(ctx context.Context, a *app, args []string) error {
	fs := a.newFlagSet("session")
	showToken := fs.Bool("show-token", false, "print tokens in full")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 || fs.Arg(0) != "dump" {
		fs.Usage()
		return errors.New("session: expected 'dump'")
	}
	// Flags may also follow the action.
	if err := fs.Parse(fs.Args()[1:]); err != nil {
		return err
	}
	if fs.NArg() != 0 {
		fs.Usage()
		return fmt.Errorf("session dump: unexpected argument %q", fs.Arg(0))
	}

	snap, err := a.client.Store().Snapshot(ctx)
	if err != nil {
		return err
	}
	if !*showToken {
		maskTokens(snap)
	}

	keys := make([]string, 0, len(snap))
	for key := range snap {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		a.printf("%s=%s\n", key, snap[key])
	}
	if len(keys) == 0 {
		a.printf("(empty)\n")
	}
	return nil
}

// maskTokens hides the token in the discrete key and inside the record.
func maskTokens(snap map[string]string) {
	if token, ok := snap[session.KeyToken]; ok {
		snap[session.KeyToken] = mask(token)
	}
	raw, ok := snap[session.KeyRecord]
	if !ok {
		return
	}
	st, err := session.DecodeRecord([]byte(raw))
	if err != nil || st.Token == "" {
		return
	}
	st.Token = mask(st.Token)
	data, err := session.EncodeRecord(st)
	if err != nil {
		return
	}
	snap[session.KeyRecord] = string(data)
}

func mask(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "…" + fmt.Sprintf("(%d chars)", len(token))
}

// prettyJSON indents raw for terminal output.
func prettyJSON(raw []byte) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return string(raw)
	}
	return string(out)
}
