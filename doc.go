/*
Package lifx provides data structures and functions for communicating with
and animating LIFX devices over the LAN protocol documented at
https://lan.developer.lifx.com/docs, so only supports local (same network)
communication.

The package re-exports the pieces most callers need from one place: Client
ties together discovery, a shared connection pool, and the effect
conductor; Device, Serial, and the product registry are aliased from their
owning packages so common use doesn't require importing connio/device/
lifxproducts directly.
*/
package lifx

import (
	"context"
	"fmt"
	"net"

	"github.com/dsymonds/lifx/connio"
	"github.com/dsymonds/lifx/device"
	"github.com/dsymonds/lifx/discovery"
	"github.com/dsymonds/lifx/effect"
	"github.com/dsymonds/lifx/lifxproducts"
	"github.com/dsymonds/lifx/pool"
	"github.com/dsymonds/lifx/transport"
)

// Device is a single addressable LIFX device.
type Device = device.Device

// Serial is a device's 48-bit LAN protocol identity.
type Serial = connio.Serial

// Conductor runs lighting effects across a set of devices; see package
// effect for the Effect/FrameEffect/WaveformEffect interfaces and package
// effects for the built-in catalog.
type Conductor = effect.Conductor

// Client is the top-level handle most programs construct once: a
// broadcast-capable transport, a shared connection pool, and an effect
// conductor.
type Client struct {
	tr   *transport.Transport
	pool *pool.Pool
	cond *effect.Conductor
}

// NewClient opens a broadcast-capable transport and a connection pool,
// ready for Discover and device operations.
func NewClient() (*Client, error) {
	tr, err := transport.Open(context.Background(), 0)
	if err != nil {
		return nil, fmt.Errorf("lifx: NewClient: %w", err)
	}
	return &Client{
		tr:   tr,
		pool: pool.New(pool.DefaultCapacity),
		cond: effect.New(),
	}, nil
}

// Close releases the client's discovery transport and every pooled
// connection.
func (c *Client) Close() error {
	err := c.tr.Close()
	if perr := c.pool.Close(); err == nil {
		err = perr
	}
	return err
}

// Conductor returns the client's effect conductor.
func (c *Client) Conductor() *Conductor {
	return c.cond
}

// Discover broadcasts for devices and resolves each response to a *Device
// backed by the client's connection pool. A short ctx deadline (1-3s) is
// typical; discovery treats deadline expiry as the normal end of the scan,
// not an error.
func (c *Client) Discover(ctx context.Context) ([]*Device, error) {
	found, err := discovery.Discover(ctx, c.tr)
	if err != nil {
		return nil, err
	}
	return discovery.Resolve(ctx, c.pool, found)
}

// DeviceBySerial resolves serial to a pooled Device at addr, without
// running a discovery broadcast (for a previously-known device).
func (c *Client) DeviceBySerial(ctx context.Context, serial Serial, addr *net.UDPAddr) (*Device, error) {
	conn, err := c.pool.Get(ctx, serial, addr, nil)
	if err != nil {
		return nil, err
	}
	return device.New(conn), nil
}

// FindBySerial and FindByIP locate one device among devs.
var (
	FindBySerial = discovery.FindBySerial
	FindByIP     = discovery.FindByIP
)

// FindByLabel queries each device's label in turn until one matches.
func FindByLabel(ctx context.Context, devs []*Device, label string) (*Device, error) {
	return discovery.FindByLabel(ctx, devs, label)
}

// ProductsFile is the embedded LIFX product registry, for callers that want
// to call DetermineProduct directly.
var ProductsFile = lifxproducts.ProductsFile

// DetermineProduct resolves a device's (vendor, product, firmware) triple
// against file to a Product record with its capability bits.
func DetermineProduct(file []lifxproducts.VendorProducts, vendor, product uint32, hf lifxproducts.HostFirmware) (lifxproducts.Product, error) {
	return lifxproducts.DetermineProduct(file, vendor, product, hf)
}
