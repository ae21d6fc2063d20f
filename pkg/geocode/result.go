package geocode

// Status is the terminal state of one reverse-geocode attempt.
type Status string

const (
	// StatusOK means an endpoint returned a usable address.
	StatusOK Status = "OK"
	// StatusNotFound means both endpoints were exhausted without a usable
	// address. It is not an error; the job keeps going.
	StatusNotFound Status = "NOT_FOUND"
	// StatusError means the coordinate was rejected before any network call.
	StatusError Status = "ERROR"
)

// Sources identify which endpoint produced a result.
const (
	SourceNominatim = "nominatim"
	SourcePhoton    = "photon"
)

// Result holds the address fields resolved for one coordinate.
type Result struct {
	Street      string
	Kelurahan   string
	Kecamatan   string
	City        string
	Province    string
	FullAddress string
	Source      string
	Status      Status
}
