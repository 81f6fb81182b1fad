package archive

import "testing"

func TestDatabaseIngestionOrder(t *testing.T) {
	db := NewDatabase()
	db.Add(Package{Name: "apt", Version: "2.6.1", Architecture: "amd64", FileName: "apt_1.deb", Origin: Origin{Suite: "bookworm"}})
	db.Add(Package{Name: "apt", Version: "2.9.0", Architecture: "amd64", FileName: "apt_2.deb", Origin: Origin{Suite: "sid"}})

	candidates, ok := db.Get("apt")
	if !ok {
		t.Fatal("Get(apt) = false")
	}
	if len(candidates) != 2 {
		t.Fatalf("got %d candidates, want 2", len(candidates))
	}
	if candidates[0].Version != "2.6.1" {
		t.Errorf("first candidate version = %q, want first-ingested 2.6.1", candidates[0].Version)
	}

	first, ok := db.First("apt")
	if !ok || first.Origin.Suite != "bookworm" {
		t.Errorf("First(apt) = %+v, %v", first, ok)
	}
}

func TestDatabaseLookupMisses(t *testing.T) {
	db := NewDatabase()
	db.Add(Package{Name: "dash", Version: "0.5.12", Architecture: "amd64", FileName: "dash.deb"})

	if db.Has("bash") {
		t.Error("Has(bash) = true")
	}
	if _, ok := db.Get("bash"); ok {
		t.Error("Get(bash) = ok")
	}
	if _, ok := db.First("bash"); ok {
		t.Error("First(bash) = ok")
	}
	if db.Len() != 1 {
		t.Errorf("Len() = %d, want 1", db.Len())
	}
}

func TestDatabaseNamesSorted(t *testing.T) {
	db := NewDatabase()
	db.AddAll([]Package{
		{Name: "zsh", Version: "1", Architecture: "amd64", FileName: "z.deb"},
		{Name: "bash", Version: "1", Architecture: "amd64", FileName: "b.deb"},
		{Name: "mawk", Version: "1", Architecture: "amd64", FileName: "m.deb"},
	})

	names := db.Names()
	want := []string{"bash", "mawk", "zsh"}
	if len(names) != len(want) {
		t.Fatalf("Names() = %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}
