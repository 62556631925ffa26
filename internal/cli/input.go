// Package cli provides an interactive admin shell over an *engine.Engine:
// rebuild, filter_add, filter_remove, delete_phrase, upsert_phrase,
// cache_clear, status, and suggest, for use without standing up the HTTP
// transport.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/arqlane/suggestd/pkg/engine"
)

// AdminShell reads commands from stdin and dispatches them to an Engine.
type AdminShell struct {
	eng          *engine.Engine
	requestCount int
}

// NewAdminShell builds an AdminShell around eng.
func NewAdminShell(eng *engine.Engine) *AdminShell {
	return &AdminShell{eng: eng}
}

// Start begins the shell's read-eval-print loop. It continuously prompts
// for a command, reads a line from stdin, and dispatches it. The loop
// terminates when reading from stdin fails (EOF, Ctrl+D).
func (s *AdminShell) Start() error {
	log.Print("suggestd admin shell")
	log.Print("commands: rebuild | filter_add <phrase> [reason] | filter_remove <phrase> | delete_phrase <phrase> | upsert_phrase <phrase> <count> | cache_clear | status | suggest <prefix> | quit")
	reader := bufio.NewReader(os.Stdin)

	for {
		log.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return nil
		}
		s.dispatch(line)
	}
}

// dispatch parses and runs one command line, logging its result.
func (s *AdminShell) dispatch(line string) {
	s.requestCount++
	fields := strings.Fields(line)
	cmd := fields[0]
	args := fields[1:]
	ctx := context.Background()

	switch cmd {
	case "rebuild":
		size, err := s.eng.Rebuild(ctx)
		if err != nil {
			log.Errorf("rebuild failed: %v", err)
			return
		}
		log.Printf("rebuilt index: %d phrases", size)

	case "filter_add":
		if len(args) < 1 {
			log.Error("usage: filter_add <phrase> [reason]")
			return
		}
		reason := "admin"
		if len(args) > 1 {
			reason = strings.Join(args[1:], " ")
		}
		if err := s.eng.FilterAdd(args[0], reason); err != nil {
			log.Errorf("filter_add failed: %v", err)
			return
		}
		log.Printf("blocked %q: %s", args[0], reason)

	case "filter_remove":
		if len(args) < 1 {
			log.Error("usage: filter_remove <phrase>")
			return
		}
		if err := s.eng.FilterRemove(args[0]); err != nil {
			log.Errorf("filter_remove failed: %v", err)
			return
		}
		log.Printf("unblocked %q", args[0])

	case "delete_phrase":
		if len(args) < 1 {
			log.Error("usage: delete_phrase <phrase>")
			return
		}
		if err := s.eng.DeletePhrase(args[0]); err != nil {
			log.Errorf("delete_phrase failed: %v", err)
			return
		}
		log.Printf("soft-deleted %q", args[0])

	case "upsert_phrase":
		if len(args) < 2 {
			log.Error("usage: upsert_phrase <phrase> <count>")
			return
		}
		count, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			log.Errorf("invalid count %q: %v", args[1], err)
			return
		}
		if err := s.eng.UpsertPhrase(args[0], count); err != nil {
			log.Errorf("upsert_phrase failed: %v", err)
			return
		}
		log.Printf("set %q count to %d", args[0], count)

	case "cache_clear":
		s.eng.CacheClear()
		log.Print("cache cleared")

	case "status":
		st := s.eng.Status()
		log.Printf("index_size=%d trie_nodes=%d batch_pending=%d flush_lag_ms=%d degraded=%v",
			st.IndexSize, st.TrieNodes, st.BatchPending, st.FlushLagMs, st.Degraded)

	case "suggest":
		if len(args) < 1 {
			log.Error("usage: suggest <prefix>")
			return
		}
		results, elapsed, err := s.eng.Suggest(ctx, args[0], "", 10, false)
		if err != nil {
			log.Errorf("suggest failed: %v", err)
			return
		}
		if len(results) == 0 {
			log.Warnf("no suggestions for prefix: %q", args[0])
			return
		}
		log.Printf("found %d suggestions for %q in %v:", len(results), args[0], elapsed)
		for i, r := range results {
			clWord := fmt.Sprintf("\033[38;5;75m%s\033[0m", r.Phrase)
			log.Printf("%2d. %-40s (score: %.3f)", i+1, clWord, r.Score)
		}

	default:
		log.Errorf("unknown command: %s", cmd)
	}
}
