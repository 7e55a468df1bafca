package repository

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/iliyamo/theatre-ticketing/internal/model"
)

// Seed is the JSON catalogue the memory driver starts from.
type Seed struct {
	Events   []model.Event   `json:"events"`
	Areas    []model.Area    `json:"areas"`
	Users    []model.User    `json:"users"`
	Sessions []model.Session `json:"sessions"`
}

// Load adds every entity of the JSON seed read from r.  Explicit ids are
// kept.
func (c *MemoryCatalog) Load(r io.Reader) error {
	var s Seed
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return fmt.Errorf("decode seed: %w", err)
	}
	for _, e := range s.Events {
		c.PutEvent(e)
	}
	for _, a := range s.Areas {
		c.PutArea(a)
	}
	for _, u := range s.Users {
		c.PutUser(u)
	}
	for _, ss := range s.Sessions {
		c.PutSession(ss)
	}
	return nil
}

// LoadFile is Load on the named file.
func (c *MemoryCatalog) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return c.Load(f)
}
