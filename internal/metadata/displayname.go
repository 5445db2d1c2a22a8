package metadata

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// capitalization maps lower-cased name segments to their canonical spelling.
var capitalization = map[string]string{
	"openai": "OpenAI",
	"ai":     "AI",
	"ml":     "ML",

	"aws":      "AWS",
	"gcp":      "GCP",
	"azure":    "Azure",
	"s3":       "S3",
	"sqs":      "SQS",
	"sns":      "SNS",
	"dynamodb": "DynamoDB",

	"api":     "API",
	"http":    "HTTP",
	"https":   "HTTPS",
	"ftp":     "FTP",
	"sftp":    "SFTP",
	"ssh":     "SSH",
	"sql":     "SQL",
	"nosql":   "NoSQL",
	"graphql": "GraphQL",
	"grpc":    "gRPC",
	"rest":    "REST",
	"soap":    "SOAP",
	"smtp":    "SMTP",
	"imap":    "IMAP",
	"pop3":    "POP3",
	"tcp":     "TCP",
	"udp":     "UDP",
	"ip":      "IP",
	"dns":     "DNS",
	"ldap":    "LDAP",

	"xml":  "XML",
	"json": "JSON",
	"html": "HTML",
	"css":  "CSS",
	"csv":  "CSV",
	"yaml": "YAML",
	"toml": "TOML",

	"jwt":    "JWT",
	"oauth":  "OAuth",
	"saml":   "SAML",
	"openid": "OpenID",

	"rss":  "RSS",
	"sms":  "SMS",
	"mms":  "MMS",
	"mqtt": "MQTT",
	"amqp": "AMQP",

	"mysql":      "MySQL",
	"postgresql": "PostgreSQL",
	"mongodb":    "MongoDB",
	"redis":      "Redis",
	"mssql":      "MSSQL",
	"mariadb":    "MariaDB",

	"github":      "GitHub",
	"gitlab":      "GitLab",
	"bitbucket":   "Bitbucket",
	"salesforce":  "Salesforce",
	"workday":     "Workday",
	"servicenow":  "ServiceNow",
	"shopify":     "Shopify",
	"stripe":      "Stripe",
	"paypal":      "PayPal",
	"twilio":      "Twilio",
	"sendgrid":    "SendGrid",
	"hubspot":     "HubSpot",
	"zendesk":     "Zendesk",
	"jira":        "Jira",
	"confluence":  "Confluence",
	"linkedin":    "LinkedIn",
	"facebook":    "Facebook",
	"instagram":   "Instagram",
	"youtube":     "YouTube",
	"twitter":     "Twitter",
	"slack":       "Slack",
	"discord":     "Discord",
	"dropbox":     "Dropbox",
	"onedrive":    "OneDrive",
	"googledrive": "GoogleDrive",
	"googleapis":  "GoogleAPIs",

	"iot":  "IoT",
	"sdk":  "SDK",
	"cli":  "CLI",
	"ui":   "UI",
	"ux":   "UX",
	"url":  "URL",
	"uri":  "URI",
	"uuid": "UUID",
	"pdf":  "PDF",
	"gif":  "GIF",
	"png":  "PNG",
	"jpg":  "JPG",
	"jpeg": "JPEG",
	"svg":  "SVG",
}

// DisplayName turns a dotted package name into a human-friendly title, e.g.
// "aws.s3" becomes "AWS S3". When vendor is given, a first segment that
// matches it (case-insensitive substring either way) takes the vendor's
// spelling.
func DisplayName(packageName, vendor string) string {
	if packageName == "" {
		return ""
	}

	vendorLower := strings.ToLower(vendor)
	useVendor := vendor != "" && vendorLower != strings.ToLower(Other)

	parts := strings.Split(packageName, ".")
	for i, part := range parts {
		lower := strings.ToLower(part)
		if canonical, ok := capitalization[lower]; ok {
			parts[i] = canonical
			continue
		}
		if i == 0 && useVendor && lower != "" &&
			(strings.Contains(vendorLower, lower) || strings.Contains(lower, vendorLower)) {
			parts[i] = vendor
			continue
		}
		parts[i] = upperFirst(part)
	}
	return strings.Join(parts, " ")
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
