package mailsmodels

import (
	"fmt"
)

type PaymentReceiptData struct {
	UserName        string
	Amount          string
	BillingCycle    string
	PaymentDate     string
	NextBillingDate string
	BillingURL      string
}

func PaymentReceipt(data PaymentReceiptData) []byte {
	subject := "Subject: Your SoundBridge payment receipt\r\n"
	mime := "MIME-version: 1.0;\r\nContent-Type: text/html; charset=\"UTF-8\";\r\n\r\n"
	body := fmt.Sprintf(`
	<div style="background-color: #EC4899; width: 100%%; min-height: 300px; padding: 30px; box-sizing:border-box">
		<table style="background-color: #ffffff; width: 100%%; min-height: 300px;">
			<tbody>
				<tr>
					<td><h1 style="text-align:center">Payment received</h1></td>
				</tr>
				<tr>
					<td style="text-align:center; padding-bottom: 10px;">Hi %s, we received your %s payment of <strong>%s</strong> on %s.</td>
				</tr>
				<tr>
					<td style="text-align:center; padding-bottom: 10px;">Your next billing date is %s.</td>
				</tr>
				<tr>
					<td style="text-align:center; padding-bottom: 30px;">
						<a href="%s" style="font-weight: bold; color: #EC4899;">View your billing history</a>
					</td>
				</tr>
			</tbody>
		</table>
	</div>
`, data.UserName, data.BillingCycle, data.Amount, data.PaymentDate, data.NextBillingDate, data.BillingURL)

	return []byte(subject + mime + body)
}
