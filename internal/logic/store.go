package logic

// PercentErrorBand is the smallest percentage change that counts as a change.
// Smaller moves are ADC noise and would only make the gauge flicker.
const PercentErrorBand = 2

// Measurement pairs a value with the one it replaced.
// Previous exists only to decide whether a redraw is needed.
type Measurement[T comparable] struct {
	Current  T
	Previous T
}

// Update shifts Current into Previous and stores v.
func (m *Measurement[T]) Update(v T) {
	m.Previous = m.Current
	m.Current = v
}

// Changed reports whether the last Update moved the value.
func (m Measurement[T]) Changed() bool {
	return m.Current != m.Previous
}

// Reset zeroes both values.
func (m *Measurement[T]) Reset() {
	var zero T
	m.Current = zero
	m.Previous = zero
}

// Percentage is a battery percentage measurement diffed through PercentErrorBand.
type Percentage struct {
	Measurement[uint8]
}

// Changed reports whether the percentage moved by at least PercentErrorBand.
func (p Percentage) Changed() bool {
	d := int(p.Current) - int(p.Previous)
	if d < 0 {
		d = -d
	}
	return d >= PercentErrorBand
}

// Store holds the current and previous value of every displayed quantity.
// Values are stored as read; clamping happens when drawing.
type Store struct {
	VoltageMV    Measurement[uint16]
	CurrentA     Measurement[int16]
	TemperatureC Measurement[int16]
	Percent      Percentage
	SpeedMPH     Measurement[uint8]

	Left     Measurement[bool]
	Right    Measurement[bool]
	LowBeam  Measurement[bool]
	HighBeam Measurement[bool]
}

// Lights is one sample of the four indicator inputs.
type Lights struct {
	Left     bool
	Right    bool
	LowBeam  bool
	HighBeam bool
}

// UpdateLights applies one indicator sample.
func (s *Store) UpdateLights(l Lights) {
	s.Left.Update(l.Left)
	s.Right.Update(l.Right)
	s.LowBeam.Update(l.LowBeam)
	s.HighBeam.Update(l.HighBeam)
}

// Lights returns the current indicator states.
func (s *Store) Lights() Lights {
	return Lights{
		Left:     s.Left.Current,
		Right:    s.Right.Current,
		LowBeam:  s.LowBeam.Current,
		HighBeam: s.HighBeam.Current,
	}
}

// Reset zeroes every measurement pair.
func (s *Store) Reset() {
	*s = Store{}
}

// Readings is a copy of the current value of every displayed quantity.
type Readings struct {
	VoltageMV    uint16
	CurrentA     int16
	TemperatureC int16
	Percent      uint8
	SpeedMPH     uint8
}

// Readings returns the current values without their previous samples.
func (s *Store) Readings() Readings {
	return Readings{
		VoltageMV:    s.VoltageMV.Current,
		CurrentA:     s.CurrentA.Current,
		TemperatureC: s.TemperatureC.Current,
		Percent:      s.Percent.Current,
		SpeedMPH:     s.SpeedMPH.Current,
	}
}
