package backup

import (
	"errors"
	"testing"
)

func TestManager_Prune(t *testing.T) {
	tests := []struct {
		name        string
		create      int
		keep        int
		wantKept    int
		wantDeleted int
	}{
		{name: "prune oldest", create: 5, keep: 2, wantKept: 2, wantDeleted: 3},
		{name: "nothing to prune", create: 2, keep: 5, wantKept: 2, wantDeleted: 0},
		{name: "keep zero deletes all", create: 3, keep: 0, wantKept: 0, wantDeleted: 3},
		{name: "empty", create: 0, keep: 5, wantKept: 0, wantDeleted: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager, binary := testManager(t)

			var newest string
			for i := 0; i < tt.create; i++ {
				bak, err := manager.Create(binary, "1.0.0", "")
				if err != nil {
					t.Fatalf("Create() error = %v", err)
				}
				newest = bak.ID
			}

			result, err := manager.Prune(tt.keep)
			if err != nil {
				t.Fatalf("Prune() error = %v", err)
			}
			if result.Kept != tt.wantKept {
				t.Errorf("Prune() Kept = %v, want %v", result.Kept, tt.wantKept)
			}
			if len(result.Deleted) != tt.wantDeleted {
				t.Errorf("Prune() Deleted count = %v, want %v", len(result.Deleted), tt.wantDeleted)
			}

			backups, err := manager.List()
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(backups) != tt.wantKept {
				t.Errorf("List() after prune = %v, want %v", len(backups), tt.wantKept)
			}
			if tt.wantKept > 0 && backups[0].ID != newest {
				t.Errorf("Prune() removed the newest backup %s", newest)
			}
		})
	}
}

func TestManager_PruneNegativeKeep(t *testing.T) {
	manager, _ := testManager(t)

	if _, err := manager.Prune(-1); !errors.Is(err, ErrNegativeKeep) {
		t.Errorf("Prune(-1) error = %v, want ErrNegativeKeep", err)
	}
}
