package address

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/angelmondragon/storefront-engine/pkg/backend"
	pkgerrors "github.com/angelmondragon/storefront-engine/pkg/errors"
	"github.com/angelmondragon/storefront-engine/pkg/logger"
	"github.com/angelmondragon/storefront-engine/pkg/types"
)

// Directory is the backend surface the book depends on.
type Directory interface {
	GetUser(ctx context.Context, token, userID string) (*backend.User, error)
	UpdateAddress(ctx context.Context, token, userID string, update backend.AddressUpdate) error
}

// Input is a structured address submission.
type Input struct {
	StreetAddress string `json:"street_address" validate:"required"`
	City          string `json:"city" validate:"required"`
	State         string `json:"state"`
	PostalCode    string `json:"postal_code"`
}

// Book holds one user's delivery addresses and mirrors every mutation to the
// backend's positional address list before committing it locally.
type Book struct {
	mu        sync.Mutex
	userID    string
	directory Directory
	validate  *validator.Validate
	logg      *logger.Logger

	addresses []types.Address
	// rawCount tracks the backend list length including emptied slots, so a
	// new address never reuses a removed slot's index.
	rawCount    int
	companyName string
	gstNumber   string
	selectedID  int
	subs        []chan struct{}
}

// NewBook builds an address book for the given user.
func NewBook(userID string, directory Directory, logg *logger.Logger) (*Book, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("user id required")
	}
	if directory == nil {
		return nil, fmt.Errorf("directory required")
	}
	return &Book{
		userID:    userID,
		directory: directory,
		validate:  validator.New(),
		logg:      logg,
	}, nil
}

// Load pulls the user's raw address list and parses each non-empty entry.
// Entries keep their backend position even when earlier slots were emptied.
func (b *Book) Load(ctx context.Context, token string) error {
	user, err := b.directory.GetUser(ctx, token, b.userID)
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.addresses = nil
	b.rawCount = len(user.Addresses)
	b.companyName = user.CompanyName
	b.gstNumber = user.GSTNumber
	for i, raw := range user.Addresses {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		parsed := Parse(raw)
		parsed.ID = len(b.addresses) + 1
		parsed.Index = i
		parsed.CompanyName = user.CompanyName
		parsed.GSTNumber = user.GSTNumber
		b.addresses = append(b.addresses, parsed)
	}
	if b.findLocked(b.selectedID) == nil {
		b.selectedID = 0
		if len(b.addresses) > 0 {
			b.selectedID = b.addresses[0].ID
		}
	}
	b.mu.Unlock()

	b.notify()
	return nil
}

// Add validates and appends a new address. The backend write lands in the
// next free slot; the local entry is committed only after that write succeeds.
func (b *Book) Add(ctx context.Context, token string, input Input) (*types.Address, error) {
	if err := b.check(input); err != nil {
		return nil, err
	}

	b.mu.Lock()
	addr := b.materialize(input)
	addr.ID = b.maxIDLocked() + 1
	addr.Index = b.rawCount
	update := b.updateFor(addr)
	b.mu.Unlock()

	if err := b.directory.UpdateAddress(ctx, token, b.userID, update); err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.addresses = append(b.addresses, addr)
	b.rawCount++
	if b.selectedID == 0 {
		b.selectedID = addr.ID
	}
	b.mu.Unlock()

	b.notify()
	return &addr, nil
}

// Edit rewrites an existing address in place, keeping its id and backend slot.
func (b *Book) Edit(ctx context.Context, token string, id int, input Input) (*types.Address, error) {
	if err := b.check(input); err != nil {
		return nil, err
	}

	b.mu.Lock()
	existing := b.findLocked(id)
	if existing == nil {
		b.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}
	updated := b.materialize(input)
	updated.ID = existing.ID
	updated.Index = existing.Index
	update := b.updateFor(updated)
	b.mu.Unlock()

	if err := b.directory.UpdateAddress(ctx, token, b.userID, update); err != nil {
		return nil, err
	}

	b.mu.Lock()
	if slot := b.findLocked(id); slot != nil {
		*slot = updated
	}
	b.mu.Unlock()

	b.notify()
	return &updated, nil
}

// Remove empties the address's backend slot and drops the local entry only
// once the backend confirms. Later addresses keep their slots.
func (b *Book) Remove(ctx context.Context, token string, id int) error {
	b.mu.Lock()
	existing := b.findLocked(id)
	if existing == nil {
		b.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}
	update := backend.AddressUpdate{AddressIndex: existing.Index}
	b.mu.Unlock()

	if err := b.directory.UpdateAddress(ctx, token, b.userID, update); err != nil {
		return err
	}

	b.mu.Lock()
	kept := b.addresses[:0]
	for _, addr := range b.addresses {
		if addr.ID != id {
			kept = append(kept, addr)
		}
	}
	b.addresses = kept
	if b.selectedID == id {
		b.selectedID = 0
		if len(b.addresses) > 0 {
			b.selectedID = b.addresses[0].ID
		}
	}
	b.mu.Unlock()

	b.notify()
	return nil
}

// Select marks the current delivery address and signals subscribers so
// dependent state (the shipping rate) can refresh.
func (b *Book) Select(id int) error {
	b.mu.Lock()
	if b.findLocked(id) == nil {
		b.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}
	b.selectedID = id
	b.mu.Unlock()

	b.notify()
	return nil
}

// Selected returns the current delivery address, or false when none is set.
func (b *Book) Selected() (types.Address, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if addr := b.findLocked(b.selectedID); addr != nil {
		return *addr, true
	}
	return types.Address{}, false
}

// Addresses returns a defensive copy in backend-slot order.
func (b *Book) Addresses() []types.Address {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]types.Address, len(b.addresses))
	copy(out, b.addresses)
	return out
}

// Subscribe returns a channel signalled after every book change.
func (b *Book) Subscribe() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan struct{}, 1)
	b.subs = append(b.subs, ch)
	return ch
}

func (b *Book) check(input Input) error {
	if err := b.validate.Struct(input); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid address").
			WithDetails(fieldErrors(err))
	}
	if code := strings.TrimSpace(input.PostalCode); code != "" && !exactPostalPattern.MatchString(code) {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid address").
			WithDetails(map[string]string{"postal_code": "must be a 6-digit code"})
	}
	return nil
}

func (b *Book) materialize(input Input) types.Address {
	addr := types.Address{
		StreetAddress: strings.TrimSpace(input.StreetAddress),
		City:          strings.TrimSpace(input.City),
		State:         strings.TrimSpace(input.State),
		PostalCode:    strings.TrimSpace(input.PostalCode),
		CompanyName:   b.companyName,
		GSTNumber:     b.gstNumber,
	}
	if addr.PostalCode == "" {
		addr.PostalCode = types.PostalCodeSentinel
	}
	addr.FullAddress = addr.JoinFull()
	return addr
}

func (b *Book) updateFor(addr types.Address) backend.AddressUpdate {
	return backend.AddressUpdate{
		AddressIndex: addr.Index,
		AddressValue: addr.FullAddress,
		CompanyName:  addr.CompanyName,
		GSTNumber:    addr.GSTNumber,
	}
}

func (b *Book) findLocked(id int) *types.Address {
	if id == 0 {
		return nil
	}
	for i := range b.addresses {
		if b.addresses[i].ID == id {
			return &b.addresses[i]
		}
	}
	return nil
}

func (b *Book) maxIDLocked() int {
	max := 0
	for _, addr := range b.addresses {
		if addr.ID > max {
			max = addr.ID
		}
	}
	return max
}

func (b *Book) notify() {
	b.mu.Lock()
	subs := b.subs
	b.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func fieldErrors(err error) map[string]string {
	fields := map[string]string{}
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
	}
	return fields
}
