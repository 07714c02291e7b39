package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	gosync "sync"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nhle/clinic-chat/internal/model"
	chatsync "github.com/nhle/clinic-chat/internal/sync"
	"github.com/nhle/clinic-chat/internal/ui/chat"
)

func newSendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send ROOM TEXT",
		Short: "Send a message to a room and print the room",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runSend,
	}
	cmd.Flags().String("sender", "", "Sender name (defaults to the current user)")
	cmd.Flags().Bool("system", false, "Send as a system notice")
	cmd.Flags().Bool("json", false, "Output as JSON")
	return cmd
}

func runSend(cmd *cobra.Command, args []string) error {
	room := strings.TrimSpace(args[0])
	text := strings.Join(args[1:], " ")
	sender, _ := cmd.Flags().GetString("sender")
	system, _ := cmd.Flags().GetBool("system")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	rt, err := loadRuntime(cmd, runtimeOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	engine, err := rt.newEngine(nil, nil, "")
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if err := engine.Switch(ctx, room, "", ""); err != nil {
		return err
	}
	if system {
		err = engine.SubmitSystem(ctx, room, text)
	} else {
		err = engine.Submit(ctx, room, sender, text)
	}
	if err != nil {
		return err
	}

	return writeMessages(cmd.OutOrStdout(), engine.Messages(room), rt.user, jsonOutput)
}

func newTailCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tail ROOM",
		Short: "Follow a room, printing new messages as they arrive",
		Args:  cobra.ExactArgs(1),
		RunE:  runTail,
	}
	cmd.Flags().Bool("json", false, "Output one JSON message per line")
	return cmd
}

func runTail(cmd *cobra.Command, args []string) error {
	room := strings.TrimSpace(args[0])
	jsonOutput, _ := cmd.Flags().GetBool("json")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := loadRuntime(cmd, runtimeOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	p := newTailPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), rt.user, jsonOutput)
	addr, _ := cmd.Flags().GetString("metrics-addr")
	engine, err := rt.newEngine(p, p, addr)
	if err != nil {
		return err
	}

	// A failed first load is reported and retried by the scheduler.
	_ = engine.Switch(ctx, room, "", "")
	if err := engine.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	if err := engine.Stop(); err != nil {
		rt.logger.Debug().Err(err).Msg("stopping scheduler")
	}
	return nil
}

// tailPrinter prints each message once, in render order.
type tailPrinter struct {
	mu    gosync.Mutex
	out   io.Writer
	errw  io.Writer
	self  model.User
	json  bool
	seen  map[string]bool
	empty bool
}

func newTailPrinter(out, errw io.Writer, self model.User, jsonOutput bool) *tailPrinter {
	return &tailPrinter{out: out, errw: errw, self: self, json: jsonOutput, seen: make(map[string]bool)}
}

// Render implements chatsync.Renderer.
func (p *tailPrinter) Render(batch chatsync.RenderBatch) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if batch.Empty && !p.empty && len(p.seen) == 0 {
		p.empty = true
		if !p.json {
			fmt.Fprintln(p.out, chat.EmptyText)
		}
		return
	}
	for _, msg := range batch.Messages {
		key := messageKey(msg)
		if p.seen[key] {
			continue
		}
		p.seen[key] = true
		if p.json {
			_ = json.NewEncoder(p.out).Encode(toOutput(msg))
			continue
		}
		fmt.Fprintln(p.out, chat.RenderLine(msg, p.self, 0))
	}
}

// Report implements chatsync.StatusReporter.
func (p *tailPrinter) Report(st chatsync.Status) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.errw, "[%s] %s\n", st.Severity, st.Message())
}

// messageKey identifies a message across full reloads. Server ids win;
// otherwise the sender, text and timestamp.
func messageKey(msg model.Message) string {
	if msg.ID != "" {
		return "id:" + msg.ID
	}
	return msg.Timestamp + "\x00" + msg.Sender + "\x00" + msg.Text
}

func newUnreadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unread",
		Short: "Print unread message counts per room",
		Args:  cobra.NoArgs,
		RunE:  runUnread,
	}
	cmd.Flags().Bool("json", false, "Output as JSON")
	return cmd
}

func runUnread(cmd *cobra.Command, _ []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	rt, err := loadRuntime(cmd, runtimeOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	entries, err := rt.backend.GetUnreadSummary(cmd.Context(), rt.user.ID)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
	fmt.Fprintln(writer, "ROOM\tUNREAD")
	total := 0
	for _, e := range entries {
		fmt.Fprintf(writer, "%s\t%d\n", e.ChannelID, e.Count)
		total += e.Count
	}
	fmt.Fprintf(writer, "TOTAL\t%d\n", total)
	return writer.Flush()
}

func newRoomsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rooms",
		Short: "List rooms opened on this machine",
		Args:  cobra.NoArgs,
		RunE:  runRooms,
	}
	cmd.Flags().String("forget", "", "Remove a room from the list")
	return cmd
}

func runRooms(cmd *cobra.Command, _ []string) error {
	rt, err := loadRuntime(cmd, runtimeOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := cmd.Context()
	if id, _ := cmd.Flags().GetString("forget"); id != "" {
		if err := rt.store.DeleteRoom(ctx, id); err != nil {
			return err
		}
	}

	rooms, err := rt.store.GetRooms(ctx)
	if err != nil {
		return err
	}

	writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
	fmt.Fprintln(writer, "ROOM\tTITLE\tLAST OPENED")
	for _, r := range rooms {
		opened := "-"
		if r.LastOpenedAt != nil {
			opened = r.LastOpenedAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\n", r.ID, r.Title, opened)
	}
	return writer.Flush()
}

type messageOutput struct {
	Room      string `json:"room"`
	Sender    string `json:"sender"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

func toOutput(msg model.Message) messageOutput {
	return messageOutput{Room: msg.ChannelID, Sender: msg.Sender, Message: msg.Text, Timestamp: msg.Timestamp}
}

func writeMessages(w io.Writer, msgs []model.Message, self model.User, jsonOutput bool) error {
	if jsonOutput {
		out := make([]messageOutput, 0, len(msgs))
		for _, m := range msgs {
			out = append(out, toOutput(m))
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	if len(msgs) == 0 {
		_, err := fmt.Fprintln(w, chat.EmptyText)
		return err
	}
	for _, m := range msgs {
		if _, err := fmt.Fprintln(w, chat.RenderLine(m, self, 0)); err != nil {
			return err
		}
	}
	return nil
}

var _ interface {
	chatsync.Renderer
	chatsync.StatusReporter
} = (*tailPrinter)(nil)

