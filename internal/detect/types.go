package detect

// ClassPerson is the detection class for people.
const ClassPerson = "person"

// Detection is one detected object in an image.
type Detection struct {
	Class      string    `json:"class"`
	Confidence float64   `json:"confidence"`
	Box        Box       `json:"box"`
	Embedding  []float64 `json:"embedding,omitempty"`
}

// Box is a normalized xyxy bounding box in [0,1] image coordinates.
type Box struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// IsPerson reports whether the detection is a person.
func (d Detection) IsPerson() bool {
	return d.Class == ClassPerson
}
