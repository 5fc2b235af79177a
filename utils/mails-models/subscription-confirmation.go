package mailsmodels

import (
	"fmt"
)

// SubscriptionConfirmationData carries pre-formatted display strings; all
// amount and date formatting is done by the caller.
type SubscriptionConfirmationData struct {
	UserName        string
	PlanName        string
	BillingCycle    string
	Amount          string
	StartDate       string
	NextBillingDate string
	DashboardURL    string
}

func SubscriptionConfirmation(data SubscriptionConfirmationData) []byte {
	subject := "Subject: Welcome to SoundBridge Pro\r\n"
	mime := "MIME-version: 1.0;\r\nContent-Type: text/html; charset=\"UTF-8\";\r\n\r\n"
	body := fmt.Sprintf(`
	<div style="background-color: #EC4899; width: 100%%; min-height: 300px; padding: 30px; box-sizing:border-box">
		<table style="background-color: #ffffff; width: 100%%; min-height: 300px;">
			<tbody>
				<tr>
					<td><h1 style="text-align:center">Welcome to SoundBridge Pro, %s</h1></td>
				</tr>
				<tr>
					<td style="text-align:center; padding-bottom: 10px;">Your %s plan (%s) is now active.</td>
				</tr>
				<tr>
					<td style="text-align:center; padding-bottom: 10px;">Amount: <strong>%s</strong> &middot; Started on %s &middot; Next billing date %s</td>
				</tr>
				<tr>
					<td style="text-align:center; padding-bottom: 10px;">Your subscription comes with a 7-day money-back guarantee.</td>
				</tr>
				<tr>
					<td style="text-align:center; padding-bottom: 30px;">
						<a href="%s" style="font-weight: bold; color: #EC4899;">Go to your dashboard</a>
					</td>
				</tr>
			</tbody>
		</table>
	</div>
`, data.UserName, data.PlanName, data.BillingCycle, data.Amount, data.StartDate, data.NextBillingDate, data.DashboardURL)

	return []byte(subject + mime + body)
}
