package memory_test

import (
	"testing"

	"github.com/aretw0/reroll/pkg/adapters/memory"
	"github.com/aretw0/reroll/pkg/ports"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunHistoryStoreContract(t, store)
}
