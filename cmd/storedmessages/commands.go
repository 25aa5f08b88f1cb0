package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/storedmessages/pkg/messages"
	"github.com/dmitrymomot/storedmessages/pkg/messages/backends"
)

// storeOpener opens the configured store. Commands call it lazily so that
// --help works without a reachable backend.
type storeOpener func(ctx context.Context) (*messages.Store, backends.CloseFunc, error)

// commandKey carries the running subcommand name for log records.
type commandKey struct{}

type messageView struct {
	ID    int64     `json:"id"`
	Level string    `json:"level"`
	Text  string    `json:"text"`
	Date  time.Time `json:"date"`
	URL   string    `json:"url,omitempty"`
	Tags  string    `json:"tags,omitempty"`
}

func newRootCmd(open storeOpener, out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:          "storedmessages",
		Short:        "Manage per-user message inboxes and archives",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			cmd.SetContext(context.WithValue(cmd.Context(), commandKey{}, cmd.Name()))
		},
	}
	root.SetOut(out)

	withStore := func(fn func(cmd *cobra.Command, store *messages.Store) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			store, closeFn, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = closeFn() }()
			return fn(cmd, store)
		}
	}

	root.AddCommand(
		newMigrateCmd(withStore),
		newSendCmd(withStore),
		newListCmd("inbox", "List unread messages of a user, newest first", withStore,
			func(ctx context.Context, s *messages.Store, u messages.UserID) ([]messages.Message, error) {
				return s.Inbox(ctx, u)
			}),
		newListCmd("archive", "List archived messages of a user, newest first", withStore,
			func(ctx context.Context, s *messages.Store, u messages.UserID) ([]messages.Message, error) {
				return s.Archive(ctx, u)
			}),
		newReadCmd(withStore),
		newPurgeCmd(withStore),
		newFlushCmd(withStore),
	)

	return root
}

type storeRunner func(fn func(cmd *cobra.Command, store *messages.Store) error) func(*cobra.Command, []string) error

func newMigrateCmd(withStore storeRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Connect to the configured backend and apply its schema",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, store *messages.Store) error {
			// Opening the store already applied migrations.
			cmd.Printf("backend %s is ready\n", store.Backend().Name())
			return nil
		}),
	}
}

func newSendCmd(withStore storeRunner) *cobra.Command {
	var (
		users     []int64
		level     string
		text      string
		url       string
		tags      string
		noArchive bool
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Deliver a new message to a user",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, store *messages.Store) error {
			lvl, err := messages.ParseLevel(level)
			if err != nil {
				return err
			}

			recipients := make([]messages.UserID, len(users))
			for i, u := range users {
				recipients[i] = messages.UserID(u)
			}

			var opts []messages.MessageOption
			if url != "" {
				opts = append(opts, messages.WithURL(url))
			}
			if tags != "" {
				opts = append(opts, messages.WithTags(tags))
			}

			if noArchive {
				store = messages.NewStore(store.Backend(),
					messages.WithArchive(false), messages.WithLogger(slog.Default()))
			}

			if len(recipients) != 1 {
				return store.AddMessageFor(cmd.Context(), recipients, lvl, text, opts...)
			}

			m, err := store.AddMessage(cmd.Context(), recipients[0], lvl, text, opts...)
			if err != nil {
				return err
			}
			return printMessages(cmd.OutOrStdout(), m)
		}),
	}

	cmd.Flags().Int64SliceVar(&users, "user", nil, "recipient user id")
	cmd.Flags().StringVar(&level, "level", "info", "message level: info, success, warning, error")
	cmd.Flags().StringVar(&text, "text", "", "message body")
	cmd.Flags().StringVar(&url, "url", "", "optional link")
	cmd.Flags().StringVar(&tags, "tags", "", "optional tags")
	cmd.Flags().BoolVar(&noArchive, "no-archive", false, "skip the archive copy")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("text")

	return cmd
}

type listFunc func(ctx context.Context, s *messages.Store, u messages.UserID) ([]messages.Message, error)

func newListCmd(use, short string, withStore storeRunner, list listFunc) *cobra.Command {
	var user int64

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, store *messages.Store) error {
			msgs, err := list(cmd.Context(), store, messages.UserID(user))
			if err != nil {
				return err
			}
			return printMessages(cmd.OutOrStdout(), msgs...)
		}),
	}
	cmd.Flags().Int64Var(&user, "user", 0, "user id")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func newReadCmd(withStore storeRunner) *cobra.Command {
	var (
		user int64
		id   int64
	)

	cmd := &cobra.Command{
		Use:   "read",
		Short: "Mark a message as read, removing it from the inbox",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, store *messages.Store) error {
			m, err := store.InboxMessage(cmd.Context(), messages.UserID(user), id)
			if errors.Is(err, messages.ErrMessageDoesNotExist) {
				cmd.Println("already read")
				return nil
			}
			if err != nil {
				return err
			}

			ok, err := store.MarkRead(cmd.Context(), messages.UserID(user), m)
			if err != nil {
				return err
			}
			if ok {
				cmd.Println("marked as read")
			} else {
				cmd.Println("already read")
			}
			return nil
		}),
	}
	cmd.Flags().Int64Var(&user, "user", 0, "user id")
	cmd.Flags().Int64Var(&id, "id", 0, "message id")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func newPurgeCmd(withStore storeRunner) *cobra.Command {
	var user int64

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Mark every message of a user as read",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, store *messages.Store) error {
			return store.MarkAllRead(cmd.Context(), messages.UserID(user))
		}),
	}
	cmd.Flags().Int64Var(&user, "user", 0, "user id")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func newFlushCmd(withStore storeRunner) *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "flush",
		Short: "Delete every stored message of every user",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if !confirm {
				return fmt.Errorf("refusing to flush without --yes")
			}
			return nil
		},
		RunE: withStore(func(cmd *cobra.Command, store *messages.Store) error {
			return store.Backend().Flush(cmd.Context())
		}),
	}
	cmd.Flags().BoolVar(&confirm, "yes", false, "confirm deletion of all data")

	return cmd
}

func printMessages(w io.Writer, msgs ...messages.Message) error {
	enc := json.NewEncoder(w)
	for _, m := range msgs {
		if err := enc.Encode(messageView{
			ID:    m.ID,
			Level: m.Level.String(),
			Text:  m.Text,
			Date:  m.Date,
			URL:   m.URL,
			Tags:  m.Tags,
		}); err != nil {
			return err
		}
	}
	return nil
}
