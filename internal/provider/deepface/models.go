package deepface

// RepresentRequest for POST /represent
type RepresentRequest struct {
	Img              string `json:"img"`                     // base64 encoded image
	Model            string `json:"model_name"`              // "Facenet512", "Facenet", "VGG-Face", etc
	Detector         string `json:"detector_backend"`        // "retinaface", "mtcnn", "skip", etc
	EnforceDetection bool   `json:"enforce_detection"`       // fail when no face is found
	Align            bool   `json:"align"`                   // align faces on the eye line
	Normalization    string `json:"normalization,omitempty"` // backbone specific input normalization
	MaxFaces         int    `json:"max_faces,omitempty"`     // 0 = every face
}

// RepresentResponse from POST /represent
type RepresentResponse struct {
	Results []RepresentResult `json:"results"`
}

type RepresentResult struct {
	Embedding      []float64  `json:"embedding"`
	FacialArea     FacialArea `json:"facial_area"`
	FaceConfidence float64    `json:"face_confidence"`
}

type FacialArea struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Area returns the face area in pixels².
func (f FacialArea) Area() int {
	return f.W * f.H
}

// ErrorResponse is the body DeepFace returns alongside 4xx/5xx statuses.
type ErrorResponse struct {
	Error string `json:"error"`
}
