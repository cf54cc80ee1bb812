package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# NSE Fee Calculator Configuration
# Every value can be overridden with an environment variable, e.g.
# NSEFEES_FEES_VAT_RATE=0.16 or NSEFEES_DATA_SOURCE=sqlite.

[fees]
# VAT charged on brokerage
vat_rate = 0.16
# Levies charged on consideration
nse_levy_rate = 0.0012
cma_levy_rate = 0.0012
cdsc_fee_rate = 0.0008
icf_levy_rate = 0.0001

[fees.stamp_duty]
# Buy side only: max(fixed + rate * consideration, minimum)
fixed = 2.0
rate = 0.0
minimum = 0.0

[analysis]
# Fee percentage the sweet spot must reach
sweet_spot_threshold_pct = 2.25
# Largest quantity the sweet-spot search considers
max_sweet_spot_quantity = 1000000
# Fraction of the gap to the sweet spot proposed as an intermediate step
intermediate_fraction = 0.5
# Warn when stamp duty is at least this percentage of the trade value
stamp_duty_alert_pct = 0.1
# Flag prices older than this many days
stale_after_days = 7

# Uncomment to replace the verdict tiers. Bounds are inclusive upper limits
# on the fee percentage; the last tier catches everything above.
# [[verdict.tiers]]
# name = "excellent"
# max_fee_pct = 2.25
# emoji = "🟢"
# title = "Fees are as low as they get"
# message = "You are paying close to the regulatory minimum."

[data]
# Reference data source: "embedded", "files" or "sqlite"
source = "embedded"
# Directory holding stocks.json and brokers.json (files source)
dir = "~/.config/nse-fees/data"
# SQLite database (sqlite source)
db_path = "~/.config/nse-fees/nsefees.db"
# Broker used when none is given; empty uses the dataset default
default_broker = ""

[refresh]
api_url = "https://deveintapps.com/nseticker/api/v1/ticker"
account = "KE3000009674"
timeout = "30s"
retries = 3

[ui]
# Enable colored output
color_enabled = true
# Base URL for share links
share_base_url = "https://nsefees.co.ke/"

[logging]
# debug, info, warn, error
level = "warn"
file = true
file_path = "~/.config/nse-fees/logs/nsefees.log"
max_size_mb = 10
max_backups = 3
max_age_days = 30
`

func createTemplateConfig(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}
	return nil
}
