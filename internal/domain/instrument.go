package domain

// InstrumentType classifies an instrument for leverage configuration.
type InstrumentType string

const (
	InstrumentTypeForex     InstrumentType = "forex"
	InstrumentTypeCrypto    InstrumentType = "crypto"
	InstrumentTypeCommodity InstrumentType = "commodity"
)

// Instrument is a tradeable symbol. QuoteCurrency is the suffix stripped from
// the symbol to derive the base currency (e.g. BTC from BTCUSDT).
type Instrument struct {
	Symbol        string
	QuoteCurrency string
	Type          InstrumentType
	Active        bool
}
