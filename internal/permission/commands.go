package permission

// Command classification sets. A command's set decides how the engine
// treats it: denied outright, deferred to response filtering, always
// allowed, or checked against the group's device list.

// alwaysPermitted are commands any group member may run.
var alwaysPermitted = map[string]bool{
	"setExternalIP":   true, // internal command
	"getBridges":      true,
	"getActionLog":    true,
	"getLog":          true,
	"getWeather":      true,
	"isAlarmEnabled":  true,
	"getAlarmConfig":  true,
	"getScenes":       true,
	"getJobs":         true,
	"getCategories":   true,
	"getServerStatus": true,
	"checkUpdates":    true,
	"getMyUsergroup":  true,
}

// deviceCommands take a device id as their first argument; permission is
// membership of that id in the group's device list.
var deviceCommands = map[string]bool{
	"setDeviceProperty": true, "removeDeviceProperty": true,
	"setUserProperty": true, "removeUserProperty": true,
	"getLightState": true, "setLightColor": true, "setLightWhite": true,
	"switchOn": true, "switchOff": true, "getSwitchState": true,
	"getSensorValue": true,
	"sendKey":        true, "learnKey": true,
	"getCamera":          true,
	"getCachedThumbnail": true, "getLiveThumbnail": true,
	"supportsPTZ": true, "getPTZ": true,
	"moveCameraAbsolute": true, "moveCameraRelative": true,
	"requestStreaming": true, "stopStreaming": true,
	"startRecording": true, "stopRecording": true,
	"enableMotionRecording": true, "disableMotionRecording": true,
	"getShutterValue": true, "setShutterValue": true,
	"openShutter": true, "closeShutter": true, "stopShutter": true, "toggleShutter": true,
	"getThermostatValue": true, "setThermostatValue": true,
	"setDeviceName": true, "resetDeviceName": true,
	"setDevicePowerState": true, "getDevicePowerState": true, "toggleDevicePowerState": true,
	"enableMotionAlarms": true, "disableMotionAlarms": true,
}

// filterDevices are list-returning commands whose elements carry a
// device "id"; permission is granted up front and enforced per element
// when the response is filtered.
var filterDevices = map[string]bool{
	"getRemotes":       true,
	"getCustomRemotes": true,
	"getDevices":       true,
}

// filterCameras are list-returning commands whose elements carry a
// "cameraid"; same deferred treatment as filterDevices.
var filterCameras = map[string]bool{
	"getRecordings":     true,
	"getSomeRecordings": true,
	"getSnapshots":      true,
	"getSomeSnapshots":  true,
}

// snapshotCommands operate on a stored snapshot id; permission follows
// the owning camera.
var snapshotCommands = map[string]bool{
	"getSnapshot":    true,
	"deleteSnapshot": true,
}

// recordingCommands operate on a stored recording id; permission follows
// the owning camera.
var recordingCommands = map[string]bool{
	"getRecording":    true,
	"deleteRecording": true,
	"startPlayback":   true,
	"endPlayback":     true,
}

// ownerOnly commands are denied to every group member regardless of
// device grants. Owner and admin callers never consult the engine, so
// inside the engine these are simply always false.
var ownerOnly = map[string]bool{
	"configBackup":  true,
	"configRestore": true,
}

// IsOwnerOnly reports whether a command is restricted to owners.
// Exposed for transports that want to reject early with a clearer log.
func IsOwnerOnly(name string) bool {
	return ownerOnly[name]
}
