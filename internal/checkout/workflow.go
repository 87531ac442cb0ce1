// Package checkout implements the three step checkout: choose an address,
// choose a payment method, review and submit.
package checkout

import (
	"context"
	"fmt"
	"log"
	"sync"

	"campusshop/internal/cart"
	"campusshop/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// AddressSource loads the saved addresses of a logged-in customer.
type AddressSource interface {
	Addresses(ctx context.Context, token string) ([]models.Address, error)
}

// OrderSubmitter places an order. token is empty for guest orders.
type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, token string, req models.OrderRequest) (*models.CreatedOrder, error)
}

// Contact is what a guest has to provide instead of a login.
type Contact struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

// Params configures a new workflow.
type Params struct {
	Mode      Mode
	Session   *models.Session // required in ModeAuthenticated
	Contact   Contact         // required in ModeGuest
	Cart      *cart.Store
	Addresses AddressSource
	Orders    OrderSubmitter
}

// Summary is the order overview shown alongside every step.
type Summary struct {
	Lines     []models.CartLine `json:"lines"`
	ItemCount int               `json:"itemCount"`
	Total     decimal.Decimal   `json:"total"`
}

// View is a point-in-time snapshot of the workflow for rendering.
type View struct {
	Mode              Mode                               `json:"mode"`
	Step              Step                               `json:"step"`
	StepName          string                             `json:"stepName"`
	Addresses         models.Resource[[]models.Address] `json:"addresses"`
	SelectedAddressID *int64                             `json:"selectedAddressId,omitempty"`
	SelectedAddress   *models.Address                    `json:"selectedAddress,omitempty"`
	PaymentMethod     models.PaymentMethod               `json:"paymentMethod"`
	PaymentLabel      string                             `json:"paymentLabel"`
	Contact           *Contact                           `json:"contact,omitempty"`
	Error             string                             `json:"error,omitempty"`
	Submitting        bool                               `json:"submitting"`
	Summary           Summary                            `json:"summary"`
}

var validate = validator.New()

// Workflow is one checkout attempt. Create it with Start and discard it
// after a successful Submit or Close.
type Workflow struct {
	mode    Mode
	session *models.Session
	contact Contact
	cart    *cart.Store
	orders  OrderSubmitter

	ctx    context.Context
	cancel context.CancelFunc
	loaded chan struct{}

	mu         sync.Mutex
	step       Step
	addresses  models.Resource[[]models.Address]
	selectedID *int64
	payment    models.PaymentMethod
	errMsg     string
	submitting bool
	closed     bool
}

// Start checks the entry guards and enters the address step. In
// authenticated mode the saved addresses are fetched once, in the
// background; AddressesLoaded is closed when that fetch has finished.
func Start(ctx context.Context, p Params) (*Workflow, error) {
	if p.Mode == "" {
		p.Mode = ModeAuthenticated
	}

	switch p.Mode {
	case ModeAuthenticated:
		if p.Session == nil || p.Session.Token == "" {
			return nil, ErrNotAuthenticated
		}
	case ModeGuest:
		if err := validate.Struct(p.Contact); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidContact, err)
		}
	default:
		return nil, fmt.Errorf("unknown checkout mode %q", p.Mode)
	}

	if p.Cart == nil || p.Cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	wctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	w := &Workflow{
		mode:      p.Mode,
		session:   p.Session,
		contact:   p.Contact,
		cart:      p.Cart,
		orders:    p.Orders,
		ctx:       wctx,
		cancel:    cancel,
		loaded:    make(chan struct{}),
		step:      StepAddress,
		addresses: models.Resource[[]models.Address]{State: models.StateIdle, Data: []models.Address{}},
		payment:   models.DefaultPaymentMethod,
	}

	if p.Mode == ModeAuthenticated && p.Addresses != nil {
		w.addresses = models.Loading[[]models.Address]()
		go w.loadAddresses(p.Addresses, p.Session.Token)
	} else {
		close(w.loaded)
	}
	return w, nil
}

func (w *Workflow) loadAddresses(src AddressSource, token string) {
	defer close(w.loaded)

	list, err := src.Addresses(w.ctx, token)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ctx.Err() != nil {
		// Closed while loading; the result belongs to nobody.
		return
	}
	if err != nil {
		log.Printf("Failed to load addresses for checkout: %v", err)
		w.addresses = models.Failed[[]models.Address](err)
		w.addresses.Data = []models.Address{}
		w.errMsg = err.Error()
		return
	}
	if list == nil {
		list = []models.Address{}
	}
	w.addresses = models.Ready(list)
	if w.selectedID == nil {
		if id, ok := DefaultAddressID(list); ok {
			w.selectedID = &id
		}
	}
}

// DefaultAddressID picks the address flagged as default, else the first one.
func DefaultAddressID(list []models.Address) (int64, bool) {
	for _, a := range list {
		if a.DefaultAddress {
			return a.ID, true
		}
	}
	if len(list) > 0 {
		return list[0].ID, true
	}
	return 0, false
}

// AddressesLoaded is closed once the background address fetch is done.
func (w *Workflow) AddressesLoaded() <-chan struct{} {
	return w.loaded
}

// Mode reports how the workflow identifies the customer.
func (w *Workflow) Mode() Mode {
	return w.mode
}

// Step returns the current step.
func (w *Workflow) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// SelectAddress picks one of the loaded addresses.
func (w *Workflow) SelectAddress(id int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	for _, a := range w.addresses.Data {
		if a.ID == id {
			w.selectedID = &id
			return nil
		}
	}
	return ErrUnknownAddress
}

// SelectPayment sets the payment method label.
func (w *Workflow) SelectPayment(m models.PaymentMethod) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if !m.Valid() {
		return fmt.Errorf("unknown payment method: %q", m)
	}
	w.payment = m
	return nil
}

// Next advances one step. Leaving the address step needs a selected
// address unless the customer checks out as a guest.
func (w *Workflow) Next() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if w.step == StepAddress && w.mode == ModeAuthenticated && w.selectedID == nil {
		return ErrNoAddressSelected
	}
	if w.step < StepReview {
		w.step++
	}
	return nil
}

// Back goes one step back, never before the first step. Previously entered
// data is kept as is.
func (w *Workflow) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if w.step > StepAddress {
		w.step--
	}
	return nil
}

// OrderRequest builds the request that Submit would send right now.
func (w *Workflow) OrderRequest() models.OrderRequest {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.orderRequestLocked()
}

func (w *Workflow) orderRequestLocked() models.OrderRequest {
	req := models.OrderRequest{
		PaymentMethod: w.payment,
		Items:         w.cart.OrderItems(),
	}
	if w.mode == ModeGuest {
		req.CustomerName = w.contact.Name
		req.CustomerEmail = w.contact.Email
	} else {
		req.CustomerName = w.session.DisplayName()
		req.CustomerEmail = w.session.Email
	}
	if w.selectedID != nil {
		id := *w.selectedID
		req.AddressID = &id
	}
	return req
}

// Submit places the order from the review step. On success the workflow
// is closed and the created order returned. On failure it stays on the
// review step with the error recorded; nothing is retried.
func (w *Workflow) Submit(ctx context.Context) (*models.CreatedOrder, error) {
	w.mu.Lock()
	switch {
	case w.closed:
		w.mu.Unlock()
		return nil, ErrClosed
	case w.step != StepReview:
		w.mu.Unlock()
		return nil, ErrNotInReview
	case w.submitting:
		w.mu.Unlock()
		return nil, ErrSubmitting
	}

	req := w.orderRequestLocked()
	if len(req.Items) == 0 {
		w.errMsg = ErrEmptyCart.Error()
		w.mu.Unlock()
		return nil, ErrEmptyCart
	}
	token := ""
	if w.mode == ModeAuthenticated {
		token = w.session.Token
	}
	w.submitting = true
	w.errMsg = ""
	w.mu.Unlock()

	created, err := w.orders.SubmitOrder(ctx, token, req)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.submitting = false
	if w.closed {
		return nil, ErrClosed
	}
	if err != nil {
		w.errMsg = err.Error()
		return nil, err
	}
	w.closeLocked()
	return created, nil
}

// Close tears the workflow down. Pending address results are discarded.
func (w *Workflow) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closeLocked()
}

func (w *Workflow) closeLocked() {
	if w.closed {
		return
	}
	w.closed = true
	w.cancel()
}

// Closed reports whether the workflow was submitted or torn down.
func (w *Workflow) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// View snapshots the workflow for rendering.
func (w *Workflow) View() View {
	w.mu.Lock()
	defer w.mu.Unlock()

	lines := w.cart.Lines()
	count := 0
	for _, l := range lines {
		count += l.Quantity
	}
	v := View{
		Mode:          w.mode,
		Step:          w.step,
		StepName:      w.step.String(),
		Addresses:     w.addresses,
		PaymentMethod: w.payment,
		PaymentLabel:  w.payment.Label(),
		Error:         w.errMsg,
		Submitting:    w.submitting,
		Summary: Summary{
			Lines:     lines,
			ItemCount: count,
			Total:     cart.Total(lines),
		},
	}
	v.Addresses.Data = make([]models.Address, len(w.addresses.Data))
	copy(v.Addresses.Data, w.addresses.Data)
	if w.mode == ModeGuest {
		contact := w.contact
		v.Contact = &contact
	}
	if w.selectedID != nil {
		id := *w.selectedID
		v.SelectedAddressID = &id
		for _, a := range w.addresses.Data {
			if a.ID == id {
				addr := a
				v.SelectedAddress = &addr
				break
			}
		}
	}
	return v
}
