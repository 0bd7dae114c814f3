// Package invoicing exposes the document lifecycle over HTTP and keeps the
// per-device business profile, invoice counter and entitlement flag.
package invoicing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quickbill/quickbill/internal/invoice"
	"github.com/quickbill/quickbill/internal/shared"
)

// NumberFormat renders the suggested invoice number from a counter value.
const NumberFormat = "INV-%03d"

// Entitlement is the persisted Pro flag.
type Entitlement struct {
	Pro       bool      `json:"pro"`
	Reference string    `json:"reference,omitempty"`
	Source    string    `json:"source,omitempty"`
	GrantedAt time.Time `json:"grantedAt"`
}

// Grant describes an entitlement landing from a payment relay.
type Grant struct {
	DeviceID  string `json:"deviceId" validate:"required,uuid"`
	Reference string `json:"reference" validate:"required,max=128"`
	Source    string `json:"source" validate:"omitempty,max=64"`
}

// Profile reads and writes the device records behind a document.
type Profile struct {
	store shared.RecordStore
	now   func() time.Time
}

// NewProfile constructs a Profile.
func NewProfile(store shared.RecordStore) *Profile {
	return &Profile{store: store, now: time.Now}
}

// Business returns the saved business details; ok is false when none exist.
func (p *Profile) Business(ctx context.Context, device string) (invoice.Business, bool, error) {
	var b invoice.Business
	err := p.store.Load(ctx, device, shared.RecordBusiness, &b)
	if errors.Is(err, shared.ErrRecordNotFound) {
		return invoice.Business{}, false, nil
	}
	if err != nil {
		return invoice.Business{}, false, err
	}
	return b, true, nil
}

// SaveBusiness persists the business details for later documents.
func (p *Profile) SaveBusiness(ctx context.Context, device string, b invoice.Business) error {
	return p.store.Save(ctx, device, shared.RecordBusiness, b)
}

// NextNumber suggests the number of the next document.
func (p *Profile) NextNumber(ctx context.Context, device string) (string, error) {
	n, err := p.store.Counter(ctx, device, shared.RecordCounter)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(NumberFormat, n+1), nil
}

// AdvanceCounter records one successfully exported document.
func (p *Profile) AdvanceCounter(ctx context.Context, device string) (int64, error) {
	return p.store.Incr(ctx, device, shared.RecordCounter)
}

// IsPro reports the entitlement flag. Missing records mean free tier.
func (p *Profile) IsPro(ctx context.Context, device string) (bool, error) {
	var e Entitlement
	err := p.store.Load(ctx, device, shared.RecordEntitlement, &e)
	if errors.Is(err, shared.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return e.Pro, nil
}

// GrantPro sets the entitlement flag for a device.
func (p *Profile) GrantPro(ctx context.Context, g Grant) error {
	return p.store.Save(ctx, g.DeviceID, shared.RecordEntitlement, Entitlement{
		Pro:       true,
		Reference: g.Reference,
		Source:    g.Source,
		GrantedAt: p.now().UTC(),
	})
}

// NewDocument builds a fresh document rehydrated with the device's
// business details and next invoice number.
func (p *Profile) NewDocument(ctx context.Context, device, template string) (invoice.Document, error) {
	number, err := p.NextNumber(ctx, device)
	if err != nil {
		return invoice.Document{}, err
	}
	opts := invoice.Options{Number: number, Template: template}
	b, ok, err := p.Business(ctx, device)
	if err != nil {
		return invoice.Document{}, err
	}
	if ok {
		opts.Business = &b
	}
	return invoice.NewDocument(p.now(), opts), nil
}
