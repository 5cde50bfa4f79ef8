package storage

import (
	"context"
	"sync"

	"fabrik/internal/economy"
)

// Memory is the map-backed driver. Records are cloned on the way in and out
// so callers never share mutable state with the store. Field increments are
// atomic under the store mutex.
type Memory struct {
	mu       sync.RWMutex
	accounts map[economy.Key]*economy.Account
	order    []economy.Key // insertion order, so List snapshots are stable
}

func NewMemory() *Memory {
	return &Memory{accounts: make(map[economy.Key]*economy.Account)}
}

func (m *Memory) Get(_ context.Context, key economy.Key) (*economy.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	acc, ok := m.accounts[key]
	if !ok {
		return nil, nil
	}
	return acc.Clone(), nil
}

func (m *Memory) Set(_ context.Context, key economy.Key, acc *economy.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.accounts[key]; !exists {
		m.order = append(m.order, key)
	}
	m.accounts[key] = acc.Clone()
	return nil
}

func (m *Memory) SetField(_ context.Context, key economy.Key, field economy.Field, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[key]
	if !ok {
		return errNotFound(key)
	}
	return applyField(acc, field, value)
}

func (m *Memory) Increment(_ context.Context, key economy.Key, field economy.Field, delta int64) error {
	return m.add(key, field, delta)
}

func (m *Memory) Decrement(_ context.Context, key economy.Key, field economy.Field, delta int64) error {
	return m.add(key, field, -delta)
}

func (m *Memory) add(key economy.Key, field economy.Field, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[key]
	if !ok {
		return errNotFound(key)
	}
	if _, err := counterColumn(field); err != nil {
		return err
	}
	switch field {
	case economy.FieldWallet:
		acc.Wallet += delta
	case economy.FieldBank:
		acc.Bank += delta
	case economy.FieldFabricXP:
		acc.Fabric.XP += delta
	case economy.FieldFabricLevel:
		acc.Fabric.Level += delta
	case economy.FieldFabricEmployees:
		acc.Fabric.Employees += delta
	}
	return nil
}

func (m *Memory) Delete(_ context.Context, key economy.Key) (*economy.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[key]
	if !ok {
		return nil, nil
	}
	delete(m.accounts, key)
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return acc, nil
}

func (m *Memory) List(_ context.Context, filter economy.ListFilter) ([]economy.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]economy.Account, 0, len(m.order))
	for _, k := range m.order {
		acc := m.accounts[k]
		if filter.GuildID != nil && acc.GuildID != *filter.GuildID {
			continue
		}
		out = append(out, *acc.Clone())
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }

func errNotFound(key economy.Key) error {
	return &NotFoundError{Key: key}
}

// NotFoundError reports a field write against an absent record.
type NotFoundError struct {
	Key economy.Key
}

func (e *NotFoundError) Error() string {
	return "storage: no record for user " + e.Key.UserID
}
