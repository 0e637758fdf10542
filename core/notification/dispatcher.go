package notification

import (
	"context"
	"net/mail"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

type (
	// Ledger answers which parents should be told about a student's activity.
	Ledger interface {
		ParentsOf(ctx context.Context, studentID string) ([]string, error)
	}

	// UserGetter resolves recipient accounts.
	UserGetter interface {
		FilterByID(ctx context.Context, ids []string) ([]user.User, error)
	}

	// Dispatcher consumes Events and fans each one out to the acting student's
	// linked parents: one unread in-app Notification per parent (the
	// authoritative channel) plus one best-effort email (advisory only).
	// Failures are logged and swallowed, never surfaced to the emitter.
	Dispatcher struct {
		repo    Repository
		ledger  Ledger
		users   UserGetter
		mailSvc core.EmailService
		logger  core.Logger

		events    chan Event
		done      chan struct{}
		closeOnce sync.Once
		sync      bool
	}
)

func NewDispatcher(repo Repository, ledger Ledger, users UserGetter, mailSvc core.EmailService, logger core.Logger) *Dispatcher {
	d := &Dispatcher{
		repo:    repo,
		ledger:  ledger,
		users:   users,
		mailSvc: mailSvc,
		logger:  logger,
		events:  make(chan Event, 64),
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

// NewDispatcherMock fans out synchronously on Dispatch; for tests.
func NewDispatcherMock(repo Repository, ledger Ledger, users UserGetter, mailSvc core.EmailService, logger core.Logger) *Dispatcher {
	return &Dispatcher{
		repo:    repo,
		ledger:  ledger,
		users:   users,
		mailSvc: mailSvc,
		logger:  logger,
		sync:    true,
	}
}

// Dispatch submits an event without blocking the caller. When the buffer is
// full the event is dropped: notifications are advisory and must never stall
// or fail the triggering mutation.
func (d *Dispatcher) Dispatch(evt Event) {
	if d.sync {
		d.fanOut(context.Background(), evt)
		return
	}
	select {
	case d.events <- evt:
	default:
		d.logger.Warn("notification: event buffer full, dropping event", evt.Student)
	}
}

// Close stops intake and drains pending events before returning, so dispatch
// completes before process shutdown.
func (d *Dispatcher) Close() {
	if d.sync {
		return
	}
	d.closeOnce.Do(func() { close(d.events) })
	<-d.done
}

func (d *Dispatcher) run() {
	for evt := range d.events {
		d.fanOut(context.Background(), evt)
	}
	close(d.done)
}

func (d *Dispatcher) fanOut(ctx context.Context, evt Event) {
	parentIDs, err := d.ledger.ParentsOf(ctx, evt.Student.ID)
	if err != nil {
		d.logger.Error("notification: listing parents", errors.Wrap(err, "listing parents"), evt.Student)
		return
	}
	if len(parentIDs) == 0 { // the common case: nobody linked yet
		return
	}
	parents, err := d.users.FilterByID(ctx, parentIDs)
	if err != nil {
		d.logger.Error("notification: resolving parents", errors.Wrap(err, "resolving parents"), evt.Student)
		return
	}

	now := time.Now().UTC()
	msgs := make([]*core.EmailMessage, 0, len(parents))
	for _, parent := range parents {
		_, err := d.repo.CreateNotification(ctx, Notification{
			UserID:    parent.ID,
			Title:     "Student Update",
			Message:   evt.Student.Name + ": " + evt.Message,
			Type:      TypeTaskUpdate,
			CreatedAt: now,
		})
		if err != nil {
			d.logger.Error("notification: creating notification", errors.Wrap(err, "creating notification"), parent)
			continue
		}
		msgs = append(msgs, &core.EmailMessage{
			To:      []mail.Address{{Name: parent.Name, Address: parent.Email}},
			Subject: "School Work Update - " + evt.Student.Name,
			Body:    evt.Message,
		})
	}
	d.mailSvc.SendMessages(msgs...)
}
