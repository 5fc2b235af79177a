package subscription

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Asibe-Cheta/soundbridge-sub006/models"
	"github.com/Asibe-Cheta/soundbridge-sub006/utils"
	mailsmodels "github.com/Asibe-Cheta/soundbridge-sub006/utils/mails-models"
)

// UserInfo is what the notifier needs to address a mail, nothing more.
type UserInfo struct {
	Email string
	Name  string
}

// UserInfoResolver looks up notification addressing for a user. A (nil,
// nil) return means the profile does not exist; it never gates a state
// transition.
type UserInfoResolver interface {
	GetUserInfo(ctx context.Context, userID string) (*UserInfo, error)
}

// ProfileStore resolves user info from the profiles table.
type ProfileStore struct {
	dbc *gorm.DB
}

func NewProfileStore(dbc *gorm.DB) *ProfileStore {
	return &ProfileStore{dbc: dbc}
}

func (p *ProfileStore) GetUserInfo(ctx context.Context, userID string) (*UserInfo, error) {
	var user models.User
	err := p.dbc.WithContext(ctx).First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve user %s: %w", userID, err)
	}

	name := user.UserName
	if name == "" {
		name = strings.Split(user.Email, "@")[0]
	}
	return &UserInfo{Email: user.Email, Name: name}, nil
}

// MailSender sends an already-rendered message. *utils.Mailer satisfies it.
type MailSender interface {
	Send(email string, message []byte) error
}

// Notifier delivers the reconciler's pending notifications. Dispatch has no
// error return on purpose: a financial state transition must never fail
// because a mail could not be sent, so every failure path here ends in a
// log line.
type Notifier struct {
	resolver UserInfoResolver
	mailer   MailSender
	baseURL  string
}

func NewNotifier(resolver UserInfoResolver, mailer MailSender, baseURL string) *Notifier {
	return &Notifier{
		resolver: resolver,
		mailer:   mailer,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

func (n *Notifier) Dispatch(ctx context.Context, note *Notification) {
	info, err := n.resolver.GetUserInfo(ctx, note.UserID)
	if err != nil {
		utils.LogErrorWithUser(note.UserID, err, "Notification dropped: could not resolve recipient")
		return
	}
	if info == nil {
		utils.LogErrorWithUser(note.UserID, nil, "Notification dropped: no profile for user")
		return
	}

	var message []byte
	switch note.Kind {
	case NotifyConfirmation:
		message = mailsmodels.SubscriptionConfirmation(mailsmodels.SubscriptionConfirmationData{
			UserName:        info.Name,
			PlanName:        "Pro",
			BillingCycle:    displayCycle(note.BillingCycle),
			Amount:          formatAmount(note.Amount, note.Currency),
			StartDate:       formatDate(note.PeriodStart),
			NextBillingDate: formatDate(note.PeriodEnd),
			DashboardURL:    n.baseURL + "/dashboard",
		})
	case NotifyReceipt:
		message = mailsmodels.PaymentReceipt(mailsmodels.PaymentReceiptData{
			UserName:        info.Name,
			Amount:          formatAmount(note.Amount, note.Currency),
			BillingCycle:    displayCycle(note.BillingCycle),
			PaymentDate:     formatDate(note.OccurredAt),
			NextBillingDate: formatDate(note.PeriodEnd),
			BillingURL:      n.baseURL + "/dashboard?tab=billing",
		})
	case NotifyPaymentFailed:
		message = mailsmodels.PaymentFailed(mailsmodels.PaymentFailedData{
			UserName:           info.Name,
			Amount:             formatAmount(note.Amount, note.Currency),
			BillingCycle:       displayCycle(note.BillingCycle),
			GracePeriodEndDate: formatDate(note.GraceDeadline),
			UpdatePaymentURL:   n.baseURL + "/dashboard?tab=billing",
		})
	case NotifyDowngraded:
		message = mailsmodels.AccountDowngraded(mailsmodels.AccountDowngradedData{
			UserName:      info.Name,
			Reason:        note.Reason,
			DowngradeDate: formatDate(note.OccurredAt),
			ReactivateURL: n.baseURL + "/upgrade",
		})
	default:
		utils.LogErrorWithUser(note.UserID, nil, "Notification dropped: unknown kind "+string(note.Kind))
		return
	}

	if err := n.mailer.Send(info.Email, message); err != nil {
		utils.LogErrorWithUser(note.UserID, err, "Notification mail failed, not retrying")
		return
	}
	utils.LogSuccessWithUser(note.UserID, "Notification "+string(note.Kind)+" sent")
}

var currencySymbols = map[string]string{
	"gbp": "£",
	"usd": "$",
	"eur": "€",
}

// formatAmount turns a smallest-unit amount into a display string with the
// currency symbol. Formatting lives here because mail templates only accept
// pre-formatted strings.
func formatAmount(amount int64, currency string) string {
	code := strings.ToLower(currency)
	if symbol, ok := currencySymbols[code]; ok {
		return fmt.Sprintf("%s%.2f", symbol, float64(amount)/100)
	}
	return fmt.Sprintf("%.2f %s", float64(amount)/100, strings.ToUpper(currency))
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2 January 2006")
}

func displayCycle(cycle models.BillingCycle) string {
	if cycle == models.BillingYearly {
		return "Yearly"
	}
	return "Monthly"
}
