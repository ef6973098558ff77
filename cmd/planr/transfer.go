package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/christopherklint97/planr/internal/store"
)

// exportedTask is one entry of a planr backup file.
type exportedTask struct {
	Content     string `json:"content"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	CompletedAt string `json:"completed_at,omitempty"`
}

// importedItem accepts planr backups as well as the web app's item export,
// which used "text" for content, a "completed" flag and a "timestamp".
type importedItem struct {
	Content     string `json:"content"`
	Text        string `json:"text"`
	Type        string `json:"type"`
	ItemType    string `json:"item_type"`
	Status      string `json:"status"`
	Completed   bool   `json:"completed"`
	CreatedAt   string `json:"created_at"`
	Timestamp   string `json:"timestamp"`
	CompletedAt string `json:"completed_at"`
}

func runExport(cmd *cobra.Command, args []string) error {
	path := fmt.Sprintf("planr-backup-%s.json", time.Now().Format("2006-01-02"))
	if len(args) > 0 {
		path = args[0]
	}

	db, err := store.Open()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if path == "-" {
		_, err := exportTasks(db, os.Stdout)
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	n, err := exportTasks(db, f)
	if err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("Exported %d tasks to %s\n", n, path)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	yes, _ := cmd.Flags().GetBool("yes")

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening %s: %w", args[0], err)
	}
	defer f.Close()

	tasks, err := decodeImport(f)
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}
	if len(tasks) == 0 {
		fmt.Println("Nothing to import.")
		return nil
	}

	if !yes {
		if !isTerminal(os.Stdin) {
			return fmt.Errorf("refusing to import without confirmation; pass --yes")
		}
		fmt.Printf("Import %d tasks? This will merge with existing data. [y/N] ", len(tasks))
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if answer := strings.ToLower(strings.TrimSpace(line)); answer != "y" && answer != "yes" {
			fmt.Println("Import cancelled.")
			return nil
		}
	}

	db, err := store.Open()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	added, skipped, err := importTasks(db, tasks)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d tasks (%d already present)\n", added, skipped)
	return nil
}

func exportTasks(db *store.DB, w io.Writer) (int, error) {
	tasks, err := db.ListTasks()
	if err != nil {
		return 0, fmt.Errorf("loading tasks: %w", err)
	}

	out := make([]exportedTask, 0, len(tasks))
	for _, t := range tasks {
		e := exportedTask{
			Content:   t.Content,
			Status:    t.Status,
			CreatedAt: t.CreatedAt.UTC().Format(time.RFC3339),
		}
		if !t.CompletedAt.IsZero() {
			e.CompletedAt = t.CompletedAt.UTC().Format(time.RFC3339)
		}
		out = append(out, e)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return 0, fmt.Errorf("writing export: %w", err)
	}
	return len(out), nil
}

// decodeImport reads a JSON array of items. Plans and empty entries are
// dropped; unparseable timestamps fall back to the import time.
func decodeImport(r io.Reader) ([]store.Task, error) {
	var items []importedItem
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("expected a JSON array of items: %w", err)
	}

	tasks := make([]store.Task, 0, len(items))
	for _, it := range items {
		if it.Type == "plan" || it.ItemType == "plan" {
			continue
		}
		content := it.Content
		if content == "" {
			content = it.Text
		}
		if strings.TrimSpace(content) == "" {
			continue
		}

		t := store.Task{Content: content, Status: store.TaskPending}
		if it.Completed || it.Status == store.TaskCompleted {
			t.Status = store.TaskCompleted
			t.CompletedAt = parseTimestamp(it.CompletedAt)
		}
		created := it.CreatedAt
		if created == "" {
			created = it.Timestamp
		}
		t.CreatedAt = parseTimestamp(created)
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// importTasks adds tasks whose content is not already in the store.
func importTasks(db *store.DB, tasks []store.Task) (added, skipped int, err error) {
	existing, err := db.ListTasks()
	if err != nil {
		return 0, 0, fmt.Errorf("loading tasks: %w", err)
	}
	known := make(map[string]bool, len(existing))
	for _, t := range existing {
		known[normalizeTask(t.Content)] = true
	}

	for _, t := range tasks {
		key := normalizeTask(t.Content)
		if known[key] {
			skipped++
			continue
		}
		if _, err := db.ImportTask(t); err != nil {
			return added, skipped, fmt.Errorf("importing task %q: %w", t.Content, err)
		}
		known[key] = true
		added++
	}
	return added, skipped, nil
}

func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.000Z", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
