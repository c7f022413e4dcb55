package domain

// HolderType is the size category assigned to a holder.
type HolderType string

// Holder categories, in increasing order of value.
const (
	HolderSmall  HolderType = "Small"
	HolderMedium HolderType = "Medium"
	HolderLarge  HolderType = "Large"
	HolderWhale  HolderType = "Whale"
)

// HolderStat is the total value received by one address.
type HolderStat struct {
	Address            string     // receiver address
	TotalValueReceived float64    // sum of incoming transfer values (ETH)
	HolderType         HolderType // size category
}
