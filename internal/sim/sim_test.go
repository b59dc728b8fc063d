package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/gridsim/internal/components"
	"github.com/vk/gridsim/internal/iface"
	"github.com/vk/gridsim/internal/solver"
	"github.com/vk/gridsim/internal/transport/loopback"
)

// divider wires the canonical test circuit: a 10 V DC source driving two
// equal 100 ohm resistors in series, measuring across the lower one.
func divider(t *testing.T) (*Simulation, *components.VoltageSource, *components.Resistor) {
	t.Helper()
	gnd := components.Ground()
	n1 := components.NewNode("n1", 0)
	n2 := components.NewNode("n2", 1)

	vs := components.NewVoltageSource("vs", n1, gnd, 10, 0)
	r1 := components.NewResistor("r1", n1, n2, 100)
	r2 := components.NewResistor("r2", n2, gnd, 100)

	s, err := New("divider", solver.NewSystem(2, 1), Config{TimeStep: 1e-3, FinalTime: 3e-3})
	require.NoError(t, err)
	s.AddComponent(vs)
	s.AddComponent(r1)
	s.AddComponent(r2)
	return s, vs, r2
}

func TestNewValidatesConfig(t *testing.T) {
	sys := solver.NewSystem(1, 0)
	_, err := New("s", sys, Config{TimeStep: 0, FinalTime: 1})
	assert.Error(t, err)
	_, err = New("s", sys, Config{TimeStep: 1e-3, FinalTime: 0})
	assert.Error(t, err)
}

func TestResistorDivider(t *testing.T) {
	s, vs, r2 := divider(t)
	require.NoError(t, s.Run(context.Background()))

	assert.InDelta(t, 5.0, r2.IntfVoltage.Get(), 1e-9)
	assert.InDelta(t, 0.05, r2.IntfCurrent.Get(), 1e-9)
	// The branch current unknown is the current into the positive terminal.
	assert.InDelta(t, -0.05, vs.IntfCurrent.Get(), 1e-9)
}

func TestScheduleDerivation(t *testing.T) {
	s, _, _ := divider(t)
	require.NoError(t, s.Initialize(context.Background()))

	pos := make(map[string]int)
	for i, tk := range s.Schedule() {
		pos[tk.Name()] = i
	}
	require.Contains(t, pos, "vs.MnaPreStep")
	require.Contains(t, pos, "System.AssembleRightSide")
	require.Contains(t, pos, "System.Solve")
	require.Contains(t, pos, "r2.MnaPostStep")

	assert.Less(t, pos["vs.MnaPreStep"], pos["System.AssembleRightSide"])
	assert.Less(t, pos["System.AssembleRightSide"], pos["System.Solve"])
	assert.Less(t, pos["System.Solve"], pos["r2.MnaPostStep"])
}

func TestCapacitorCharging(t *testing.T) {
	gnd := components.Ground()
	n1 := components.NewNode("n1", 0)
	n2 := components.NewNode("n2", 1)

	vs := components.NewVoltageSource("vs", n1, gnd, 10, 0)
	r := components.NewResistor("r", n1, n2, 100)
	c := components.NewCapacitor("c", n2, gnd, 1e-6)

	// tau = RC = 100 us; run for ten time constants.
	s, err := New("rc", solver.NewSystem(2, 1), Config{TimeStep: 1e-6, FinalTime: 1e-3})
	require.NoError(t, err)
	s.AddComponent(vs)
	s.AddComponent(r)
	s.AddComponent(c)

	require.NoError(t, s.Run(context.Background()))

	assert.InDelta(t, 10.0, c.IntfVoltage.Get(), 1e-2, "fully charged after 10 tau")
	assert.InDelta(t, 0.0, c.IntfCurrent.Get(), 1e-4)
}

func TestRunExportsThroughInterface(t *testing.T) {
	s, _, r2 := divider(t)

	epSim, epPeer := loopback.NewPair(0)
	intf := iface.New("icl", epSim, iface.Config{Downsampling: 2})
	require.NoError(t, intf.ExportAttribute(r2.IntfVoltage))
	s.AddInterface(intf)

	require.NoError(t, s.Run(context.Background()))

	// Three steps at downsampling 2 export at steps 0 and 2 only; Run
	// closed the interface, so everything is already flushed.
	var pkts []iface.Packet
	for len(pkts) < 2 {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		batch, err := epPeer.ReadValues(ctx)
		cancel()
		require.NoError(t, err)
		pkts = append(pkts, batch...)
	}
	require.Len(t, pkts, 2)
	for i, p := range pkts {
		assert.Equal(t, uint64(i), p.SequenceID)
		f, _ := p.Value.AsBigFloat().Float64()
		assert.InDelta(t, 5.0, f, 1e-9)
	}
}

func TestRunWithBlockingImport(t *testing.T) {
	s, vs, r2 := divider(t)

	epSim, epPeer := loopback.NewPair(0)
	intf := iface.New("icl", epSim, iface.Config{})
	require.NoError(t, intf.ImportAttribute(vs.VoltageRef, true))
	require.NoError(t, intf.ExportAttribute(r2.IntfVoltage))
	s.AddInterface(intf)

	// The peer drives the source setpoint and reacts to each exported
	// measurement with the next one, in lockstep with the loop.
	setpoints := []float64{10, 20, 30}
	observed := make(chan float64, 8)
	go func() {
		ctx := context.Background()
		_ = epPeer.WriteValues(ctx, []iface.Packet{
			{Value: cty.NumberFloatVal(setpoints[0]), AttributeID: 0},
		})
		sent, received := 1, 0
		for received < len(setpoints) {
			batch, err := epPeer.ReadValues(ctx)
			if err != nil {
				return
			}
			for _, p := range batch {
				f, _ := p.Value.AsBigFloat().Float64()
				observed <- f
				received++
				if sent < len(setpoints) {
					_ = epPeer.WriteValues(ctx, []iface.Packet{
						{Value: cty.NumberFloatVal(setpoints[sent]), AttributeID: 0},
					})
					sent++
				}
			}
		}
		close(observed)
	}()

	require.NoError(t, s.Run(context.Background()))

	// Half of each step's setpoint appears across the lower resistor.
	var got []float64
	for f := range observed {
		got = append(got, f)
	}
	require.Len(t, got, 3)
	for i, want := range []float64{5, 10, 15} {
		assert.InDelta(t, want, got[i], 1e-9)
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	s, _, _ := divider(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Run(ctx), context.Canceled)
}
