package fetch

// chromeHeaders mimics a desktop Chrome 120 navigation request.
var chromeHeaders = [][2]string{
	{"Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7"},
	{"Accept-Encoding", "gzip, deflate, br"},
	{"Accept-Language", "de-DE,de;q=0.9,en-US;q=0.8,en;q=0.7"},
	{"Cache-Control", "no-cache"},
	{"Pragma", "no-cache"},
	{"Sec-CH-UA", `"Google Chrome";v="120", "Chromium";v="120", "Not-A.Brand";v="24"`},
	{"Sec-CH-UA-Mobile", "?0"},
	{"Sec-CH-UA-Platform", `"Windows"`},
	{"Sec-Fetch-Dest", "document"},
	{"Sec-Fetch-Mode", "navigate"},
	{"Sec-Fetch-Site", "none"},
	{"Sec-Fetch-User", "?1"},
	{"Upgrade-Insecure-Requests", "1"},
	{"User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"},
}

// ChromeHeaders returns a fresh copy of the browser header set.
func ChromeHeaders() map[string]string {
	out := make(map[string]string, len(chromeHeaders))
	for _, h := range chromeHeaders {
		out[h[0]] = h[1]
	}
	return out
}
