package mailsmodels

import (
	"fmt"
)

type AccountDowngradedData struct {
	UserName      string
	Reason        string // payment_failed, cancelled or expired
	DowngradeDate string
	ReactivateURL string
}

func AccountDowngraded(data AccountDowngradedData) []byte {
	reasonText := "your subscription ended"
	switch data.Reason {
	case "payment_failed":
		reasonText = "we could not collect your payment"
	case "cancelled":
		reasonText = "your subscription was cancelled"
	}

	subject := "Subject: Your SoundBridge account has been downgraded\r\n"
	mime := "MIME-version: 1.0;\r\nContent-Type: text/html; charset=\"UTF-8\";\r\n\r\n"
	body := fmt.Sprintf(`
	<div style="background-color: #EC4899; width: 100%%; min-height: 300px; padding: 30px; box-sizing:border-box">
		<table style="background-color: #ffffff; width: 100%%; min-height: 300px;">
			<tbody>
				<tr>
					<td><h1 style="text-align:center">Your account is now on the free plan</h1></td>
				</tr>
				<tr>
					<td style="text-align:center; padding-bottom: 10px;">Hi %s, on %s your account was downgraded because %s.</td>
				</tr>
				<tr>
					<td style="text-align:center; padding-bottom: 10px;">Your music stays where it is. You can reactivate Pro at any time.</td>
				</tr>
				<tr>
					<td style="text-align:center; padding-bottom: 30px;">
						<a href="%s" style="font-weight: bold; color: #EC4899;">Reactivate SoundBridge Pro</a>
					</td>
				</tr>
			</tbody>
		</table>
	</div>
`, data.UserName, data.DowngradeDate, reasonText, data.ReactivateURL)

	return []byte(subject + mime + body)
}
