package fetcher

// Strategy is one rung on the extraction ladder. Later rungs trade speed
// for evasiveness against throttling and bot checks.
type Strategy struct {
	Name          string
	UserAgent     string
	PlayerClients string
	ExtraArgs     []string
}

const (
	desktopUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	mobileUA  = "Mozilla/5.0 (iPhone; CPU iPhone OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Mobile/15E148 Safari/604.1"
)

// Strategies returns the extraction ladder in priority order.
func Strategies() []Strategy {
	return []Strategy{
		{
			Name:          "default",
			UserAgent:     desktopUA,
			PlayerClients: "android,web",
		},
		{
			Name:          "mobile",
			UserAgent:     mobileUA,
			PlayerClients: "android,mweb",
		},
		{
			Name:          "aggressive",
			UserAgent:     desktopUA,
			PlayerClients: "android,web,mweb,tv_embedded",
		},
		{
			Name:          "stealth",
			UserAgent:     desktopUA,
			PlayerClients: "android,web",
			ExtraArgs:     []string{"--sleep-interval", "1", "--max-sleep-interval", "3"},
		},
	}
}
