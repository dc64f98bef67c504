package loader

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/exp/maps"
)

// MaxServices is the capacity of a ServiceTable.
const MaxServices = 256

// SymbolKind distinguishes exported functions from exported data.
type SymbolKind int

const (
	KindFunction SymbolKind = iota
	KindData
)

func (k SymbolKind) String() string {
	if k == KindData {
		return "data"
	}
	return "function"
}

// Symbol is one entry of the service-call table.
type Symbol struct {
	Name    string
	Address uintptr
	Kind    SymbolKind
}

// ServiceTable is the ordered table of system services handed to every
// application entry point. Once frozen it is read-only and shared by all
// loaded applications.
type ServiceTable struct {
	mu      sync.RWMutex
	symbols []Symbol
	index   map[string]int
	frozen  bool
}

// NewServiceTable returns an empty, mutable table.
func NewServiceTable() *ServiceTable {
	return &ServiceTable{index: make(map[string]int)}
}

// StandardServices lists the services every table exports, in ABI order.
// Applications address services by their index in this list.
var StandardServices = []string{
	"system_service_register",
	"system_service_unregister",
	"system_service_set_state",
	"system_service_heartbeat",
	"system_event_post",
	"system_event_subscribe",
	"system_event_unsubscribe",
	"system_event_register_type",
	"esp_log_write",
	"malloc",
	"free",
	"calloc",
	"heap_caps_malloc",
	"heap_caps_free",
}

// NewStandardTable registers StandardServices using resolve for each address
// and freezes the table. A service that resolves to zero is an error.
//
// Example:
//
//	table, err := loader.NewStandardTable(func(name string) uintptr {
//	    return host.Export(name)
//	})
func NewStandardTable(resolve func(name string) uintptr) (*ServiceTable, error) {
	t := NewServiceTable()
	for _, name := range StandardServices {
		if err := t.Register(name, resolve(name), KindFunction); err != nil {
			return nil, err
		}
	}
	t.Freeze()
	return t, nil
}

// Register adds a symbol. Registering an existing name updates its address
// and kind in place, keeping its index.
func (t *ServiceTable) Register(name string, addr uintptr, kind SymbolKind) error {
	if name == "" {
		return errors.New("symbol name cannot be empty")
	}
	if addr == 0 {
		return fmt.Errorf("symbol %s: address cannot be zero", name)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.frozen {
		return ErrTableFrozen
	}

	if i, ok := t.index[name]; ok {
		t.symbols[i].Address = addr
		t.symbols[i].Kind = kind
		return nil
	}

	if len(t.symbols) >= MaxServices {
		return ErrTableFull
	}

	t.index[name] = len(t.symbols)
	t.symbols = append(t.symbols, Symbol{Name: name, Address: addr, Kind: kind})
	return nil
}

// Lookup returns the symbol registered under name.
func (t *ServiceTable) Lookup(name string) (Symbol, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	i, ok := t.index[name]
	if !ok {
		return Symbol{}, false
	}
	return t.symbols[i], true
}

// Index returns the table slot of name, or -1.
func (t *ServiceTable) Index(name string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if i, ok := t.index[name]; ok {
		return i
	}
	return -1
}

// Len returns the number of registered symbols.
func (t *ServiceTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.symbols)
}

// Symbols returns a copy of the table in slot order.
func (t *ServiceTable) Symbols() []Symbol {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.symbols)
}

// Names returns the registered names sorted alphabetically.
func (t *ServiceTable) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Sorted(slices.Values(maps.Keys(t.index)))
}

// Freeze makes the table read-only.
func (t *ServiceTable) Freeze() {
	t.mu.Lock()
	t.frozen = true
	t.mu.Unlock()
}

// Frozen reports whether Freeze has been called.
func (t *ServiceTable) Frozen() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.frozen
}
