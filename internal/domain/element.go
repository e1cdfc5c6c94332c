package domain

// DataElement is a long-lived piece of reference data that rules apply to.
type DataElement struct {
	ElementID   string
	Name        string
	Description string
	DataType    string
	Domain      string
}
