package schema

// Column names shared by the built-in schemas.
const (
	ColDetail     = "Detail"
	ColBandwidth  = "Bandwidth"
	ColDistance   = "Distance"
	ColSerial     = "SN"
	ColConnector1 = "Connector 1"
	ColConnector2 = "Connector 2"
	ColLength     = "Length"
	ColQuantity   = "Quantity"
	ColNote       = "Note"
	ColPhotoLink  = "Photo Link"
)

// Item type names.
const (
	TypeSFP       = "SFP"
	TypePatchCord = "Patch Cord"
)

// SFP describes optical transceivers; each physical unit is its own row,
// identified by serial number.
var SFP = ItemTypeSchema{
	Name:      TypeSFP,
	SheetName: "SFP",
	Steps: []Step{
		{Key: ColDetail, Prompt: "Select the transceiver type", Kind: KindChoice,
			Options: []string{"SFP", "SFP+", "XFP", "XFP+"}},
		{Key: ColBandwidth, Prompt: "Select the bandwidth", Kind: KindChoice,
			Options: []string{"1G", "10G", "100G"}},
		{Key: ColDistance, Prompt: "Select the reach", Kind: KindChoice,
			Options: []string{"10 km", "40 km", "80 km"}},
		{Key: ColSerial, Prompt: "Type the serial number (SN)", Kind: KindText, Required: true},
		{Key: ColNote, Prompt: "Enter a note (location/condition)", Kind: KindText},
		{Key: ColPhotoLink, Prompt: "Send a photo of the unit", Kind: KindPhoto},
	},
	NaturalKey:       []string{ColSerial},
	DisplayGroupBy:   []string{ColBandwidth, ColDistance},
	SortBy:           ColDetail,
	PhotoFolderField: ColDetail,
}

// PatchCord describes fiber patch cords; identical cords share one row with
// a quantity, and the two connector ends are interchangeable.
var PatchCord = ItemTypeSchema{
	Name:      TypePatchCord,
	SheetName: "Patch Cord",
	Steps: []Step{
		{Key: ColDetail, Prompt: "Select the cable type", Kind: KindChoice,
			Options: []string{"Simplex", "Duplex"}},
		{Key: ColConnector1, Prompt: "Select the first connector", Kind: KindChoice,
			Options: []string{"SC-UPC", "SC-APC", "FC-UPC", "FC-APC", "LC-UPC", "LC-APC"}},
		{Key: ColConnector2, Prompt: "Select the second connector", Kind: KindChoice,
			Options: []string{"SC-UPC", "SC-APC", "FC-UPC", "FC-APC", "LC-UPC", "LC-APC"}},
		{Key: ColLength, Prompt: "Select the length", Kind: KindChoice,
			Options: []string{"1m", "3m", "5m", "10m", "15m", "20m", "50m"}},
		{Key: ColQuantity, Prompt: "Enter the unit count (digits only)", Kind: KindText, Required: true, Numeric: true},
		{Key: ColNote, Prompt: "Enter a note (location/condition)", Kind: KindText},
		{Key: ColPhotoLink, Prompt: "Send a photo of the cord", Kind: KindPhoto},
	},
	NaturalKey:       []string{ColDetail, ColConnector1, ColConnector2, ColLength},
	SymmetricPair:    [2]string{ColConnector1, ColConnector2},
	QuantityField:    ColQuantity,
	DisplayGroupBy:   []string{ColConnector1, ColConnector2, ColLength},
	PhotoFolderField: ColDetail,
}

// Builtin returns the registry of the warehouse's item types. Failure here
// means the compiled-in configuration is broken, so callers treat it as
// fatal at startup.
func Builtin() (*Registry, error) {
	return NewRegistry(SFP, PatchCord)
}
