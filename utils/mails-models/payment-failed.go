package mailsmodels

import (
	"fmt"
)

type PaymentFailedData struct {
	UserName           string
	Amount             string
	BillingCycle       string
	GracePeriodEndDate string
	UpdatePaymentURL   string
}

func PaymentFailed(data PaymentFailedData) []byte {
	subject := "Subject: Action required: your SoundBridge payment failed\r\n"
	mime := "MIME-version: 1.0;\r\nContent-Type: text/html; charset=\"UTF-8\";\r\n\r\n"
	body := fmt.Sprintf(`
	<div style="background-color: #EC4899; width: 100%%; min-height: 300px; padding: 30px; box-sizing:border-box">
		<table style="background-color: #ffffff; width: 100%%; min-height: 300px;">
			<tbody>
				<tr>
					<td><h1 style="text-align:center">We couldn't process your payment</h1></td>
				</tr>
				<tr>
					<td style="text-align:center; padding-bottom: 10px;">Hi %s, your %s payment of <strong>%s</strong> failed.</td>
				</tr>
				<tr>
					<td style="text-align:center; padding-bottom: 10px;">Please update your payment method before <strong>%s</strong>, or your account will be downgraded to the free plan.</td>
				</tr>
				<tr>
					<td style="text-align:center; padding-bottom: 30px;">
						<a href="%s" style="font-weight: bold; color: #EC4899;">Update payment method</a>
					</td>
				</tr>
			</tbody>
		</table>
	</div>
`, data.UserName, data.BillingCycle, data.Amount, data.GracePeriodEndDate, data.UpdatePaymentURL)

	return []byte(subject + mime + body)
}
