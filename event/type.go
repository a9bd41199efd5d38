package event

type Type int

const (
	DeviceArrived  Type = 100
	DeviceReturned Type = 101
	DeviceLeft     Type = 102
)

func (e Type) describe() string {
	switch e {
	case DeviceArrived:
		return "DEVICE_ARRIVED"
	case DeviceReturned:
		return "DEVICE_RETURNED"
	case DeviceLeft:
		return "DEVICE_LEFT"
	default:
		return "UNKNOWN"
	}
}

func (e Type) String() string {
	return e.describe()
}
