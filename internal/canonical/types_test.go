package canonical

import "testing"

func TestMerge_KeepFirst(t *testing.T) {
	var ds Dataset
	ds.Merge(Dataset{
		Orders:   []Order{{OrderID: "T1"}},
		Products: []Product{{ProductID: "P1", Name: "first"}},
		Staff:    []StaffMember{{StaffID: "E1", Name: "Alice"}},
	})
	ds.Merge(Dataset{
		Orders:   []Order{{OrderID: "T2"}},
		Products: []Product{{ProductID: "P1", Name: "second"}, {ProductID: "P2", Name: "new"}},
		Staff:    []StaffMember{{StaffID: "E1", Name: "Impostor"}, {StaffID: "E2", Name: "Bob"}},
	})

	if len(ds.Orders) != 2 {
		t.Errorf("orders = %d, want 2", len(ds.Orders))
	}
	if len(ds.Products) != 2 {
		t.Fatalf("products = %d, want 2", len(ds.Products))
	}
	if ds.Products[0].Name != "first" {
		t.Errorf("P1 name = %q, want the first definition kept", ds.Products[0].Name)
	}
	if len(ds.Staff) != 2 || ds.Staff[0].Name != "Alice" {
		t.Errorf("staff = %+v, want Alice kept first", ds.Staff)
	}
}

func TestEmpty(t *testing.T) {
	var ds Dataset
	if !ds.Empty() {
		t.Error("Empty() = false for a zero dataset")
	}
	ds.Orders = append(ds.Orders, Order{OrderID: "T1"})
	if ds.Empty() {
		t.Error("Empty() = true with an order present")
	}
}
