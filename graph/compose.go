package graph

// Capabilities lists the optional interfaces a backend wrapper exposes.
// Nil fields are left out.
type Capabilities struct {
	Prober   EmptinessProber
	Universe Universe
	Writer   Writer
	Reader   Reader
}

// CapabilitiesOf reports which optional interfaces b implements.
func CapabilitiesOf(b Backend) Capabilities {
	var c Capabilities
	c.Prober, _ = b.(EmptinessProber)
	c.Universe, _ = b.(Universe)
	c.Writer, _ = b.(Writer)
	c.Reader, _ = b.(Reader)
	return c
}

// Compose returns a Backend that implements exactly the optional interfaces
// set in c, in addition to b's core methods. Wrappers use it so that type
// assertions on the wrapper give the same answer as on the wrapped backend.
func Compose(b Backend, c Capabilities) Backend {
	p, u, w, r := c.Prober != nil, c.Universe != nil, c.Writer != nil, c.Reader != nil
	switch {
	case p && u && w && r:
		return struct {
			Backend
			EmptinessProber
			Universe
			Writer
			Reader
		}{b, c.Prober, c.Universe, c.Writer, c.Reader}
	case p && u && w:
		return struct {
			Backend
			EmptinessProber
			Universe
			Writer
		}{b, c.Prober, c.Universe, c.Writer}
	case p && u && r:
		return struct {
			Backend
			EmptinessProber
			Universe
			Reader
		}{b, c.Prober, c.Universe, c.Reader}
	case p && w && r:
		return struct {
			Backend
			EmptinessProber
			Writer
			Reader
		}{b, c.Prober, c.Writer, c.Reader}
	case u && w && r:
		return struct {
			Backend
			Universe
			Writer
			Reader
		}{b, c.Universe, c.Writer, c.Reader}
	case p && u:
		return struct {
			Backend
			EmptinessProber
			Universe
		}{b, c.Prober, c.Universe}
	case p && w:
		return struct {
			Backend
			EmptinessProber
			Writer
		}{b, c.Prober, c.Writer}
	case p && r:
		return struct {
			Backend
			EmptinessProber
			Reader
		}{b, c.Prober, c.Reader}
	case u && w:
		return struct {
			Backend
			Universe
			Writer
		}{b, c.Universe, c.Writer}
	case u && r:
		return struct {
			Backend
			Universe
			Reader
		}{b, c.Universe, c.Reader}
	case w && r:
		return struct {
			Backend
			Writer
			Reader
		}{b, c.Writer, c.Reader}
	case p:
		return struct {
			Backend
			EmptinessProber
		}{b, c.Prober}
	case u:
		return struct {
			Backend
			Universe
		}{b, c.Universe}
	case w:
		return struct {
			Backend
			Writer
		}{b, c.Writer}
	case r:
		return struct {
			Backend
			Reader
		}{b, c.Reader}
	default:
		return struct{ Backend }{b}
	}
}
