package mainboilerplate

import (
	"sort"

	"github.com/jessevdk/go-flags"
)

// CommandRegistry collects sub-commands as they're declared, typically from
// init functions of the files implementing them, for later addition to a
// github.com/jessevdk/go-flags Parser.
type CommandRegistry map[string][]command

type command struct {
	name, short, long string
	data              interface{}
}

// NewCommandRegistry returns an empty CommandRegistry.
func NewCommandRegistry() CommandRegistry {
	return make(CommandRegistry)
}

// AddCommand registers a sub-command of |parentName|. Nested parents are
// separated with dots, eg "level1.level2". The root parent is "".
func (cr CommandRegistry) AddCommand(parentName, name, short, long string, data interface{}) {
	cr[parentName] = append(cr[parentName], command{name: name, short: short, long: long, data: data})
}

// AddCommands adds commands registered under |rootName| to |root|,
// and recursively adds their own registered sub-commands. Commands
// are added in name order.
func (cr CommandRegistry) AddCommands(rootName string, root *flags.Command) error {
	var cmds = append([]command(nil), cr[rootName]...)
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].name < cmds[j].name })

	for _, c := range cmds {
		var added, err = root.AddCommand(c.name, c.short, c.long, c.data)
		if err != nil {
			return err
		}
		var childName = c.name
		if rootName != "" {
			childName = rootName + "." + c.name
		}
		if err = cr.AddCommands(childName, added); err != nil {
			return err
		}
	}
	return nil
}
