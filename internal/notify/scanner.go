// Package notify implements the daily reminder scan: it walks every user's
// active installments and pushes a notification for each unpaid payment
// falling inside that installment's reminder lead window.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/navid4x/ghesta/internal/jalali"
	"github.com/navid4x/ghesta/internal/models"
	"github.com/navid4x/ghesta/internal/remote"
)

// Store is the slice of the remote contract the scanner reads from.
// *remote.Client satisfies it.
type Store interface {
	ListUserIDs(ctx context.Context) ([]string, error)
	ListInstallments(ctx context.Context, userID string, opts remote.ListOptions) ([]models.Installment, error)
	ListPushSubscriptions(ctx context.Context, userID string) ([]remote.PushSubscription, error)
	DeletePushSubscription(ctx context.Context, id string) error
}

// ScanResult summarizes one run.
type ScanResult struct {
	Users         int
	Due           int
	Delivered     int
	Failed        int
	Deregistered  int
	EmailsSent    int
	EmailFailures int
}

type Scanner struct {
	store  Store
	pusher Pusher
	email  *EmailSender
	logger *logrus.Logger
}

// NewScanner builds a scanner. email may be nil when SMTP is not configured.
func NewScanner(store Store, pusher Pusher, email *EmailSender, logger *logrus.Logger) *Scanner {
	return &Scanner{store: store, pusher: pusher, email: email, logger: logger}
}

// Run scans all users for payments due on day or within each installment's
// reminder lead window after it, and fans the reminders out to every
// registered endpoint. Endpoints reporting gone are deregistered. Delivery
// is best effort: per-user and per-endpoint failures are logged and counted,
// never fatal.
//
// TODO: record the last notified day per payment so a second run on the
// same day does not re-send.
func (s *Scanner) Run(ctx context.Context, day jalali.Date) (ScanResult, error) {
	userIDs, err := s.store.ListUserIDs(ctx)
	if err != nil {
		return ScanResult{}, fmt.Errorf("list users: %w", err)
	}

	var result ScanResult
	for _, userID := range userIDs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Users++
		if err := s.scanUser(ctx, userID, day, &result); err != nil {
			result.Failed++
			s.logger.WithError(err).WithField("user_id", userID).Error("reminder scan failed for user")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"day":          day.Format(),
		"users":        result.Users,
		"due":          result.Due,
		"delivered":    result.Delivered,
		"failed":       result.Failed,
		"deregistered": result.Deregistered,
	}).Info("reminder scan finished")
	return result, nil
}

func (s *Scanner) scanUser(ctx context.Context, userID string, day jalali.Date, result *ScanResult) error {
	installments, err := s.store.ListInstallments(ctx, userID, remote.ListOptions{})
	if err != nil {
		return fmt.Errorf("list installments: %w", err)
	}

	var due []duePayment
	for _, inst := range installments {
		if inst.Lifecycle() != models.LifecycleActive {
			continue
		}
		for _, payment := range inst.Payments {
			if payment.IsPaid || payment.DeletedAt != nil {
				continue
			}
			daysUntil, err := daysUntilDue(day, payment.DueDateJalali)
			if err != nil {
				s.logger.WithError(err).WithField("payment_id", payment.ID).Warn("skipping payment with bad due date")
				continue
			}
			if daysUntil < 0 || daysUntil > inst.ReminderDays {
				continue
			}
			due = append(due, duePayment{installment: inst, payment: payment, daysUntil: daysUntil})
		}
	}
	result.Due += len(due)
	if len(due) == 0 {
		return nil
	}

	subs, err := s.store.ListPushSubscriptions(ctx, userID)
	if err != nil {
		return fmt.Errorf("list push subscriptions: %w", err)
	}

	for _, d := range due {
		title, body := reminderMessage(d)
		for _, sub := range subs {
			if err := s.pusher.Push(ctx, sub.Endpoint, title, body); err != nil {
				if errors.Is(err, ErrEndpointGone) {
					if delErr := s.store.DeletePushSubscription(ctx, sub.ID); delErr != nil {
						s.logger.WithError(delErr).WithField("subscription_id", sub.ID).Warn("failed to deregister gone endpoint")
					} else {
						result.Deregistered++
					}
					continue
				}
				result.Failed++
				s.logger.WithError(err).WithField("subscription_id", sub.ID).Warn("push delivery failed")
				continue
			}
			result.Delivered++
		}

		if s.email != nil {
			if err := s.email.SendReminder(userID, title, body); err != nil {
				result.EmailFailures++
				s.logger.WithError(err).WithField("user_id", userID).Warn("reminder email failed")
			} else {
				result.EmailsSent++
			}
		}
	}
	return nil
}

type duePayment struct {
	installment models.Installment
	payment     models.Payment
	daysUntil   int
}

// daysUntilDue counts the whole days from day to the payment's due date.
// Negative means overdue.
func daysUntilDue(day jalali.Date, dueJalali string) (int, error) {
	due, err := jalali.Parse(dueJalali)
	if err != nil {
		return 0, err
	}
	from, err := day.Time()
	if err != nil {
		return 0, err
	}
	to, err := due.Time()
	if err != nil {
		return 0, err
	}
	// Compare calendar days, not elapsed hours: a DST-shortened day is
	// still one day away.
	fromDay := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	toDay := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(toDay.Sub(fromDay) / (24 * time.Hour)), nil
}

func reminderMessage(d duePayment) (title, body string) {
	title = "یادآوری قسط"
	amount := jalali.FormatCurrency(d.payment.Amount)
	dueDate := jalali.ToPersianDigits(d.payment.DueDateJalali)
	switch d.daysUntil {
	case 0:
		body = fmt.Sprintf("قسط %s به مبلغ %s ریال امروز (%s) سررسید است.", d.installment.Creditor, amount, dueDate)
	case 1:
		body = fmt.Sprintf("قسط %s به مبلغ %s ریال فردا (%s) سررسید می‌شود.", d.installment.Creditor, amount, dueDate)
	default:
		days := jalali.ToPersianDigits(fmt.Sprintf("%d", d.daysUntil))
		body = fmt.Sprintf("قسط %s به مبلغ %s ریال %s روز دیگر (%s) سررسید می‌شود.", d.installment.Creditor, amount, days, dueDate)
	}
	return title, body
}
