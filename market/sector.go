package market

import "strings"

// sectorMap classifies NSE symbols into sectors for the risk manager's
// same-category admission check. Unknown symbols fall into "Other".
var sectorMap = map[string]string{
	"RELIANCE": "Energy", "ONGC": "Energy", "BPCL": "Energy", "NTPC": "Energy",
	"POWERGRID": "Energy", "TATAPOWER": "Energy", "COALINDIA": "Energy",

	"TCS": "IT", "INFY": "IT", "WIPRO": "IT", "HCLTECH": "IT", "TECHM": "IT",

	"HDFCBANK": "Banking", "ICICIBANK": "Banking", "SBIN": "Banking",
	"AXISBANK": "Banking", "KOTAKBANK": "Banking", "INDUSINDBK": "Banking",

	"BAJFINANCE": "Financial", "BAJAJFINSV": "Financial", "SBILIFE": "Financial",
	"HDFCLIFE": "Financial",

	"BHARTIARTL": "Telecom", "INDUSTOWER": "Telecom",

	"MARUTI": "Auto", "TATAMOTORS": "Auto", "BAJAJ-AUTO": "Auto",
	"HEROMOTOCO": "Auto", "EICHERMOT": "Auto", "M&M": "Auto",

	"SUNPHARMA": "Pharma", "DRREDDY": "Pharma", "CIPLA": "Pharma",
	"LUPIN": "Pharma", "DIVISLAB": "Pharma",

	"TATASTEEL": "Metals", "JSWSTEEL": "Metals", "HINDALCO": "Metals",
	"VEDL": "Metals", "SAIL": "Metals",

	"HINDUNILVR": "FMCG", "ITC": "FMCG", "NESTLEIND": "FMCG",
	"BRITANNIA": "FMCG", "DABUR": "FMCG", "MARICO": "FMCG",

	"LT": "Infrastructure", "ULTRACEMCO": "Infrastructure",
	"GRASIM": "Infrastructure", "ADANIPORTS": "Infrastructure",

	"ASIANPAINT": "Materials", "PIDILITIND": "Materials",

	"TITAN": "Retail", "INDIGO": "Retail", "HAVELLS": "Retail",
}

// Sector returns the sector for an instrument. Instruments may be plain
// symbols ("RELIANCE") or exchange-qualified ("NSE_EQ|RELIANCE-EQ").
func Sector(instrument string) string {
	sym := instrument
	if i := strings.LastIndex(sym, "|"); i >= 0 {
		sym = sym[i+1:]
	}
	sym = strings.TrimSuffix(sym, "-EQ")
	if sec, ok := sectorMap[sym]; ok {
		return sec
	}
	return "Other"
}
