package domain

// TradableAsset identifies a token the engine may buy or sell.
type TradableAsset struct {
	Mint     string
	Decimals int
	Symbol   *string // lazily fetched
	Name     *string // lazily fetched
}

// AssetMetadataSnapshot is descriptive data for a mint, fetched at most once per
// filter evaluation and shared by pointer across the filters of that evaluation.
// Nil flag pointers mean the value could not be determined.
type AssetMetadataSnapshot struct {
	Mint                   string
	Name                   string
	Symbol                 string
	URI                    string
	IsMutable              *bool
	MintAuthorityPresent   *bool
	FreezeAuthorityPresent *bool
	Decimals               int
	Supply                 uint64 // raw units
}

// FilterResult is the outcome of one filter invocation.
type FilterResult struct {
	OK      bool
	Message string
}

// Pass returns a passing FilterResult.
func Pass() FilterResult {
	return FilterResult{OK: true}
}

// Fail returns a failing FilterResult with the given message.
func Fail(message string) FilterResult {
	return FilterResult{OK: false, Message: message}
}
