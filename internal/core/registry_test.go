package core

import (
	"errors"
	"testing"
)

func withRegistry(t *testing.T, defs ...ResourceDefinition) {
	t.Helper()
	Clear()
	t.Cleanup(Clear)
	for _, def := range defs {
		Register(def)
	}
}

func TestRegister_Defaults(t *testing.T) {
	withRegistry(t, ResourceDefinition{Info: ResourceInfo{Key: "supply_requests", Group: "Supply"}})

	def, ok := Get("supply_requests")
	if !ok {
		t.Fatal("not registered")
	}
	if def.Info.Path != "supply-requests" {
		t.Errorf("Path = %q, want supply-requests", def.Info.Path)
	}
	if def.Info.DefaultSort != (SortSpec{Column: ColCreatedAt, Dir: "desc"}) {
		t.Errorf("DefaultSort = %+v", def.Info.DefaultSort)
	}
}

func TestRegister_PanicsOnDuplicates(t *testing.T) {
	tests := []struct {
		name string
		def  ResourceDefinition
	}{
		{"same key", ResourceDefinition{Info: ResourceInfo{Key: "expenses", Path: "other"}}},
		{"same path", ResourceDefinition{Info: ResourceInfo{Key: "costs", Path: "expenses"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withRegistry(t, ResourceDefinition{Info: ResourceInfo{Key: "expenses"}})
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			Register(tt.def)
		})
	}
}

func TestResolve(t *testing.T) {
	withRegistry(t, ResourceDefinition{Info: ResourceInfo{Key: "inventory_items", Path: "inventory"}})

	for _, in := range []string{"inventory", "inventory_items"} {
		def, err := Resolve(in)
		if err != nil || def.Info.Key != "inventory_items" {
			t.Errorf("Resolve(%q) = %v, %v", in, def.Info.Key, err)
		}
	}
	if _, err := Resolve("widgets"); !errors.Is(err, ErrUnknownResource) {
		t.Errorf("Resolve(widgets) err = %v, want ErrUnknownResource", err)
	}
}

func TestAllAndByGroup(t *testing.T) {
	withRegistry(t,
		ResourceDefinition{Info: ResourceInfo{Key: "taxes", Group: "Finance"}},
		ResourceDefinition{Info: ResourceInfo{Key: "users", Group: "People"}},
		ResourceDefinition{Info: ResourceInfo{Key: "payments", Group: "Finance"}},
	)

	all := All()
	want := []string{"payments", "taxes", "users"}
	if len(all) != len(want) {
		t.Fatalf("All() returned %d defs", len(all))
	}
	for i, key := range want {
		if all[i].Info.Key != key {
			t.Errorf("All()[%d] = %s, want %s", i, all[i].Info.Key, key)
		}
	}

	finance := ByGroup("Finance")
	if len(finance) != 2 || finance[0].Info.Key != "payments" {
		t.Errorf("ByGroup(Finance) = %v", finance)
	}
	if Count() != 3 {
		t.Errorf("Count() = %d, want 3", Count())
	}
}
