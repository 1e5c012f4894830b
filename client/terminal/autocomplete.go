package terminal

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/c-bata/go-prompt"
)

// RemoteLister is the slice of the transfer client the completer needs.
type RemoteLister interface {
	List(ctx context.Context) ([]string, error)
}

// CommandCompleter handles command and argument completion
type CommandCompleter struct {
	commands     []prompt.Suggest
	lister       RemoteLister
	cacheTimeout time.Duration
	localDir     string

	mu          sync.Mutex
	remoteFiles []string
	lastUpdate  time.Time
}

// NewCommandCompleter creates a completer. A nil lister disables remote
// name suggestions.
func NewCommandCompleter(lister RemoteLister) *CommandCompleter {
	return &CommandCompleter{
		commands: []prompt.Suggest{
			{Text: "UPLOAD", Description: "Upload a local file"},
			{Text: "DOWNLOAD", Description: "Download a file from the server"},
			{Text: "LIST", Description: "List files on the server"},
			{Text: "DELETE", Description: "Delete a file on the server"},
			{Text: "HELP", Description: "Show help information"},
			{Text: "theme", Description: "Change terminal theme"},
			{Text: "clear", Description: "Clear terminal screen"},
			{Text: "exit", Description: "Leave the client"},
		},
		lister:       lister,
		cacheTimeout: 15 * time.Second,
		localDir:     ".",
	}
}

// UpdateRemoteFiles replaces the cached remote names.
func (c *CommandCompleter) UpdateRemoteFiles(names []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remoteFiles = append([]string(nil), names...)
	c.lastUpdate = time.Now()
}

// RemoveRemoteFile drops one name from the cache after a delete.
func (c *CommandCompleter) RemoveRemoteFile(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, f := range c.remoteFiles {
		if f == name {
			c.remoteFiles = append(c.remoteFiles[:i], c.remoteFiles[i+1:]...)
			return
		}
	}
}

// Completer returns suggestions for the current input
func (c *CommandCompleter) Completer(d prompt.Document) []prompt.Suggest {
	return c.suggest(d.TextBeforeCursor())
}

func (c *CommandCompleter) suggest(text string) []prompt.Suggest {
	words := strings.Fields(text)

	if len(words) == 0 || (len(words) == 1 && !strings.HasSuffix(text, " ")) {
		return c.suggestCommands(words)
	}
	if strings.HasSuffix(text, " ") {
		// Nothing typed for the argument yet.
		return nil
	}
	return c.suggestArguments(words)
}

func (c *CommandCompleter) suggestCommands(words []string) []prompt.Suggest {
	if len(words) == 0 {
		return c.commands
	}
	prefix := strings.ToUpper(words[0])
	var filtered []prompt.Suggest
	for _, s := range c.commands {
		if strings.HasPrefix(strings.ToUpper(s.Text), prefix) {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

func (c *CommandCompleter) suggestArguments(words []string) []prompt.Suggest {
	lastWord := words[len(words)-1]

	switch strings.ToUpper(words[0]) {
	case "DOWNLOAD", "DELETE":
		if len(words) == 2 {
			return c.suggestRemoteFiles(lastWord)
		}
	case "UPLOAD":
		return c.suggestLocalFiles(lastWord)
	case "THEME":
		var out []prompt.Suggest
		for _, name := range ThemeNames() {
			if strings.HasPrefix(name, strings.ToLower(lastWord)) {
				out = append(out, prompt.Suggest{Text: name, Description: "Theme"})
			}
		}
		return out
	}
	return nil
}

func (c *CommandCompleter) suggestRemoteFiles(prefix string) []prompt.Suggest {
	c.mu.Lock()
	stale := time.Since(c.lastUpdate) > c.cacheTimeout
	c.mu.Unlock()
	if stale {
		c.refreshRemoteCache()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return filterNames(c.remoteFiles, prefix, "Remote file")
}

func (c *CommandCompleter) suggestLocalFiles(prefix string) []prompt.Suggest {
	entries, err := os.ReadDir(c.localDir)
	if err != nil {
		return nil
	}
	var files []string
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			files = append(files, entry.Name())
		}
	}
	return filterNames(files, prefix, "Local file")
}

// filterNames matches case-insensitively and hides dot files unless the
// prefix asks for them.
func filterNames(names []string, prefix, description string) []prompt.Suggest {
	var suggestions []prompt.Suggest
	lower := strings.ToLower(prefix)
	for _, name := range names {
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(prefix, ".") {
			continue
		}
		if strings.HasPrefix(strings.ToLower(name), lower) {
			suggestions = append(suggestions, prompt.Suggest{Text: name, Description: description})
		}
	}
	return suggestions
}

// refreshRemoteCache keeps the old cache when the server is unreachable.
func (c *CommandCompleter) refreshRemoteCache() {
	if c.lister == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	names, err := c.lister.List(ctx)
	if err != nil {
		c.mu.Lock()
		c.lastUpdate = time.Now()
		c.mu.Unlock()
		return
	}
	c.UpdateRemoteFiles(names)
}
