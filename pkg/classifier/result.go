package classifier

// Status is the closed set of per-frame classification outcomes.
type Status uint8

const (
	StatusNoFace Status = iota
	StatusNormal
	StatusDrowsy
	StatusYawning
)

var StatusMap = map[Status]string{
	StatusNoFace:  "No face detected",
	StatusNormal:  "Normal",
	StatusDrowsy:  "Drowsiness detected",
	StatusYawning: "Yawning detected",
}

func (s Status) String() string {
	return StatusMap[s]
}

// IsAlert reports whether s should raise a driver alert.
func (s Status) IsAlert() bool {
	return s == StatusDrowsy || s == StatusYawning
}

// Result is one of NoFaceDetected, Normal, DrowsinessDetected or
// YawningDetected. The set is sealed; switch on the concrete type.
type Result interface {
	Status() Status
	result()
}

type NoFaceDetected struct{}

type Normal struct {
	EAR          float64
	YawnDistance float64
	FaceCount    int
}

type DrowsinessDetected struct {
	EAR          float64
	YawnDistance float64
	Threshold    float64
}

type YawningDetected struct {
	EAR          float64
	YawnDistance float64
	Threshold    float64
}

func (NoFaceDetected) Status() Status     { return StatusNoFace }
func (Normal) Status() Status             { return StatusNormal }
func (DrowsinessDetected) Status() Status { return StatusDrowsy }
func (YawningDetected) Status() Status    { return StatusYawning }

func (NoFaceDetected) result()     {}
func (Normal) result()             {}
func (DrowsinessDetected) result() {}
func (YawningDetected) result()    {}
