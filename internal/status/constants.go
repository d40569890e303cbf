// internal/status/constants.go
package status

// Door Status Block layout constants.
// These values define the protocol and MUST NOT be configurable.

// ---- BLOCK GEOMETRY ----

// SlotsPerDevice is the fixed number of registers per door controller.
const SlotsPerDevice = 20

// ---- SLOT INDICES ----

// SlotHealthCode holds the controller health state.
const SlotHealthCode = 0

// SlotMode holds the feedback mode (see Mode* codes).
const SlotMode = 1

// SlotLockOpen is 1 while the lock is in the open position.
const SlotLockOpen = 2

// SlotDeniedStreak holds the consecutive-denial counter.
const SlotDeniedStreak = 3

// SlotMainsPower is 1 while mains power is present.
const SlotMainsPower = 4

// SlotSolenoid is 1 while the door release is held.
const SlotSolenoid = 5

// SlotHorn is 1 while the horn output is driven.
const SlotHorn = 6

// SlotGrantedTotal counts successful authentications, saturating.
const SlotGrantedTotal = 7

// SlotDeniedTotal counts failed authentications, saturating.
const SlotDeniedTotal = 8

// SlotLockoutTotal counts lockout alarms, saturating.
const SlotLockoutTotal = 9

// SlotCredentials holds the number of occupied credential slots.
const SlotCredentials = 10

// ---- DEVICE NAME ----

// SlotDeviceNameStart is the first slot used for the device name.
// Device name is always placed at the END of the status block.
const SlotDeviceNameStart = 11

// SlotDeviceNameSlots is the number of slots reserved for the device name.
const SlotDeviceNameSlots = 8

// SlotDeviceNameEnd is the last slot used for the device name (inclusive).
const SlotDeviceNameEnd = SlotDeviceNameStart + SlotDeviceNameSlots - 1

// Slot 19 is reserved and always zero.
const SlotReserved = 19

// ---- LIMITS ----

// DeviceNameMaxChars is the maximum number of ASCII characters stored for device name.
const DeviceNameMaxChars = 16

// ---- HEALTH CODES ----

// HealthUnknown represents the boot state before the first cycle.
const HealthUnknown uint16 = 0

// HealthOK represents a controller whose last cycle saw no I/O fault.
const HealthOK uint16 = 1

// HealthIOFault means remote I/O or the token bus failed in the last cycle.
const HealthIOFault uint16 = 2

// ---- MODE CODES ----

const (
	ModeIdle       uint16 = 0
	ModeReading    uint16 = 1
	ModeAuthorized uint16 = 2
	ModeBusy       uint16 = 3
)
