package core

// drive blanks one line. The compare hardware toggles the video switch on
// each boundary by itself; the CPU only has to have the second boundary
// programmed before the counter gets there, which is why it spins on the
// first one instead of taking another interrupt.
//
// When the counter is already at or past the first boundary the line is
// left uncropped. Arming only the second boundary would start blanking
// there and hold it until the next edge.
func (c *Cropper) drive(edge Tick, w CropWindow) {
	start := edge + Tick(w.Start)
	if c.timer.Counter() >= start {
		c.missedWindows++
		return
	}
	c.timer.ArmCompare(start)
	c.timer.WaitFor(start)
	c.timer.ArmCompare(start + Tick(w.Length))
}
