package properties

// Well-known property keys.
const (
	KeyMachineSerialNumber = "Machine.SerialNumber"
	KeyMachineAssetNumber  = "Machine.AssetNumber"
	KeyMachineArea         = "Machine.Area"
	KeyMachineZone         = "Machine.Zone"
	KeyMachineBank         = "Machine.Bank"
	KeyMachinePosition     = "Machine.Position"
	KeyMachineLocation     = "Machine.Location"
	KeyMachineDeviceName   = "Machine.DeviceName"

	KeyOperatorCulture = "Locale.OperatorCulture"
	KeyPlayerCulture   = "Locale.PlayerCulture"

	KeyNetworkDHCP    = "Network.DhcpEnabled"
	KeyNetworkIP      = "Network.IPAddress"
	KeyNetworkMask    = "Network.SubnetMask"
	KeyNetworkGateway = "Network.Gateway"
	KeyNetworkDNS     = "Network.Dns"

	KeyAudioVolume = "Audio.Volume"
	KeyAudioMuted  = "Audio.Muted"

	KeyEdgeLightBrightness = "EdgeLighting.Brightness"
	KeyEdgeLightFlashMs    = "EdgeLighting.FlashIntervalMs"

	KeyCoinDivert = "CoinAcceptor.Divert"

	KeyHashAlgorithm = "Authentication.Algorithm"

	KeyDoorAlarmEnabled = "Cabinet.DoorAlarmEnabled"

	KeyWizardComplete = "Wizard.Complete"
)

var wellKnown = []string{
	KeyMachineSerialNumber, KeyMachineAssetNumber, KeyMachineArea, KeyMachineZone,
	KeyMachineBank, KeyMachinePosition, KeyMachineLocation, KeyMachineDeviceName,
	KeyOperatorCulture, KeyPlayerCulture,
	KeyNetworkDHCP, KeyNetworkIP, KeyNetworkMask, KeyNetworkGateway, KeyNetworkDNS,
	KeyAudioVolume, KeyAudioMuted,
	KeyEdgeLightBrightness, KeyEdgeLightFlashMs,
	KeyCoinDivert,
	KeyHashAlgorithm,
	KeyDoorAlarmEnabled,
	KeyWizardComplete,
}

// Keys returns the well-known keys in declaration order.
func Keys() []string {
	out := make([]string, len(wellKnown))
	copy(out, wellKnown)
	return out
}
