package memstore

import (
	"testing"

	"github.com/danielhkuo/quickly-match/store"
	"github.com/danielhkuo/quickly-match/store/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(*testing.T) store.Store { return New() })
}
