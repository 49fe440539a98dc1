package block

import (
	"regexp"
	"strconv"
	"strings"
)

// NameManagerListener is notified when names are added, renamed, or removed
// from a NameManager.
type NameManagerListener interface {
	DidAddName(nm *NameManager, name string)
	DidRenameName(nm *NameManager, oldName, newName string)
	DidRemoveName(nm *NameManager, name string)
}

// NameRemovalApprover lets a listener veto a requested name removal before
// it happens, typically to prompt the user when blocks still reference the
// name.
type NameRemovalApprover interface {
	ShouldRemoveName(nm *NameManager, name string) bool
}

var trailingDigitsPattern = regexp.MustCompile(`^(.*?)(\d+)$`)

// NameManager keeps a list of user-defined names (variables, procedures)
// unique under case-insensitive comparison, preserving the display casing of
// first use.
type NameManager struct {
	names     []string
	lowercase map[string]bool
	listeners []NameManagerListener
}

// NewNameManager creates an empty name manager.
func NewNameManager() *NameManager {
	return &NameManager{lowercase: make(map[string]bool)}
}

// Names returns the managed names in insertion order.
func (nm *NameManager) Names() []string {
	return append([]string(nil), nm.names...)
}

// Count returns the number of managed names.
func (nm *NameManager) Count() int { return len(nm.names) }

// ContainsName reports whether the name is managed, ignoring case.
func (nm *NameManager) ContainsName(name string) bool {
	return nm.lowercase[strings.ToLower(name)]
}

// AddName adds a name. Adding a name that is already present under
// case-insensitive comparison is a no-op.
func (nm *NameManager) AddName(name string) {
	if name == "" || nm.ContainsName(name) {
		return
	}
	nm.names = append(nm.names, name)
	nm.lowercase[strings.ToLower(name)] = true
	for _, l := range nm.listeners {
		l.DidAddName(nm, name)
	}
}

// RenameName changes oldName to newName in place. When oldName is unknown,
// newName is simply added. When newName already exists as a different entry,
// the two entries merge into the existing one.
func (nm *NameManager) RenameName(oldName, newName string) {
	if newName == "" || strings.EqualFold(oldName, newName) && oldName == newName {
		return
	}
	index := nm.indexOf(oldName)
	if index < 0 {
		nm.AddName(newName)
		return
	}
	oldDisplay := nm.names[index]
	if nm.ContainsName(newName) && !strings.EqualFold(oldName, newName) {
		// Merge into the existing entry.
		nm.names = append(nm.names[:index], nm.names[index+1:]...)
		delete(nm.lowercase, strings.ToLower(oldName))
	} else {
		nm.names[index] = newName
		delete(nm.lowercase, strings.ToLower(oldName))
		nm.lowercase[strings.ToLower(newName)] = true
	}
	for _, l := range nm.listeners {
		l.DidRenameName(nm, oldDisplay, newName)
	}
}

// RemoveName removes a name, reporting whether it was present.
func (nm *NameManager) RemoveName(name string) bool {
	index := nm.indexOf(name)
	if index < 0 {
		return false
	}
	removed := nm.names[index]
	nm.names = append(nm.names[:index], nm.names[index+1:]...)
	delete(nm.lowercase, strings.ToLower(name))
	for _, l := range nm.listeners {
		l.DidRemoveName(nm, removed)
	}
	return true
}

// RequestRemoval removes a name unless a listener implementing
// NameRemovalApprover vetoes it. Reports whether the name was removed.
func (nm *NameManager) RequestRemoval(name string) bool {
	if !nm.ContainsName(name) {
		return false
	}
	for _, l := range nm.listeners {
		if approver, ok := l.(NameRemovalApprover); ok {
			if !approver.ShouldRemoveName(nm, name) {
				return false
			}
		}
	}
	return nm.RemoveName(name)
}

// ClearNames removes every name, notifying listeners per removal.
func (nm *NameManager) ClearNames() {
	for len(nm.names) > 0 {
		nm.RemoveName(nm.names[len(nm.names)-1])
	}
}

// GenerateUniqueName returns name if it is unused, otherwise name with its
// trailing number incremented (starting at 2) until unique. The result is
// added to the manager when addToList is true.
func (nm *NameManager) GenerateUniqueName(name string, addToList bool) string {
	uniqueName := name
	if nm.ContainsName(uniqueName) {
		baseName := name
		counter := 2
		if match := trailingDigitsPattern.FindStringSubmatch(name); match != nil {
			if parsed, err := strconv.Atoi(match[2]); err == nil {
				baseName = match[1]
				counter = parsed + 1
			}
		}
		for {
			uniqueName = baseName + strconv.Itoa(counter)
			if !nm.ContainsName(uniqueName) {
				break
			}
			counter++
		}
	}
	if addToList {
		nm.AddName(uniqueName)
	}
	return uniqueName
}

// AddListener subscribes to name changes.
func (nm *NameManager) AddListener(l NameManagerListener) {
	nm.listeners = append(nm.listeners, l)
}

// RemoveListener unsubscribes a previously added listener.
func (nm *NameManager) RemoveListener(l NameManagerListener) {
	for i, candidate := range nm.listeners {
		if candidate == l {
			nm.listeners = append(nm.listeners[:i], nm.listeners[i+1:]...)
			return
		}
	}
}

func (nm *NameManager) indexOf(name string) int {
	for i, candidate := range nm.names {
		if strings.EqualFold(candidate, name) {
			return i
		}
	}
	return -1
}
