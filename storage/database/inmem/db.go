package inmemdb

import (
	"sync"

	"github.com/trezcool/pagebuilder/core/page"
)

type (
	DB struct {
		page *pageTable
	}

	pageTable struct {
		sync.RWMutex
		table map[string]*page.Page // {name: page}
	}
)

func Open() *DB {
	return &DB{
		page: &pageTable{table: make(map[string]*page.Page)},
	}
}
