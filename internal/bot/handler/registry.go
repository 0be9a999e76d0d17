package handler

import (
	"sort"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// RunFunc executes a slash command interaction.
type RunFunc func(s *discordgo.Session, i *discordgo.InteractionCreate)

// ComponentFunc executes a message component interaction (button, select).
type ComponentFunc func(s *discordgo.Session, i *discordgo.InteractionCreate)

// Command is one slash command: its Discord definition plus its run func.
type Command struct {
	Name        string
	Description string
	Options     []*discordgo.ApplicationCommandOption
	Run         RunFunc
}

// Registry holds every registered command and component route. Handlers
// fill it during Init, the gateway dispatches from it afterwards.
type Registry struct {
	mu         sync.RWMutex
	commands   map[string]*Command
	names      []string
	components map[string]ComponentFunc
}

// NewRegistry returns an empty command registry.
func NewRegistry() *Registry {
	return &Registry{
		commands:   make(map[string]*Command),
		components: make(map[string]ComponentFunc),
	}
}

// Add registers a command. Names are case insensitive and must be unique.
func (r *Registry) Add(cmd *Command) error {
	if cmd == nil || cmd.Name == "" || cmd.Run == nil {
		return ErrCommandInvalid
	}

	name := strings.ToLower(cmd.Name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.commands[name]; ok {
		return ErrCommandExists
	}

	r.commands[name] = cmd
	r.names = append(r.names, name)

	return nil
}

// Get returns the command registered under name, or nil.
func (r *Registry) Get(name string) *Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.commands[strings.ToLower(name)]
}

// Names returns every registered command name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.names))
	copy(names, r.names)
	sort.Strings(names)

	return names
}

// Definitions returns the Discord application command definitions in
// registration order, ready for a bulk overwrite.
func (r *Registry) Definitions() []*discordgo.ApplicationCommand {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]*discordgo.ApplicationCommand, 0, len(r.names))
	for _, name := range r.names {
		cmd := r.commands[name]
		defs = append(defs, &discordgo.ApplicationCommand{
			Name:        cmd.Name,
			Description: cmd.Description,
			Options:     cmd.Options,
		})
	}

	return defs
}

// AddComponent registers a component run func for a custom id prefix.
func (r *Registry) AddComponent(prefix string, fn ComponentFunc) error {
	if prefix == "" || fn == nil {
		return ErrCommandInvalid
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.components[prefix]; ok {
		return ErrComponentExists
	}

	r.components[prefix] = fn

	return nil
}

// Component returns the run func whose prefix matches customID, or nil.
// The longest registered prefix wins.
func (r *Registry) Component(customID string) ComponentFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		fn   ComponentFunc
		best int
	)

	for prefix, candidate := range r.components {
		if strings.HasPrefix(customID, prefix) && len(prefix) > best {
			fn = candidate
			best = len(prefix)
		}
	}

	return fn
}
