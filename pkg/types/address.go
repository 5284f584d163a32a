package types

// AddressSnapshot is the immutable copy of a shipping address embedded in an
// order at placement time. Later edits to the address book never alter it.
type AddressSnapshot struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
	Country string `json:"country"`
}
