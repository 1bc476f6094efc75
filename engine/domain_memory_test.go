package engine

import (
	"testing"
	"time"
)

func TestDomainMemory_SetGet(t *testing.T) {
	dm := NewDomainMemory(1 * time.Hour)
	defer dm.Stop()

	if got := dm.Get("example.com"); got != "" {
		t.Errorf("Get on empty memory = %q, want empty", got)
	}
	dm.Set("example.com", "http")
	if got := dm.Get("example.com"); got != "http" {
		t.Errorf("Get = %q, want http", got)
	}
}

func TestDomainMemory_Expiry(t *testing.T) {
	dm := NewDomainMemory(-1 * time.Second)
	defer dm.Stop()

	dm.Set("example.com", "rod")
	if got := dm.Get("example.com"); got != "" {
		t.Errorf("Get on expired entry = %q, want empty", got)
	}
}

func TestDomainMemory_Delete(t *testing.T) {
	dm := NewDomainMemory(1 * time.Hour)
	defer dm.Stop()

	dm.Set("example.com", "rod")
	dm.Delete("example.com")
	if got := dm.Get("example.com"); got != "" {
		t.Errorf("Get after Delete = %q, want empty", got)
	}
}
