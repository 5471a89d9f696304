package vrm

// Typed views of the VRMC_vrm 1.0 extension block. Only the fields the
// pipeline consumes are declared; everything else in the extension is
// ignored on decode so newer container producers keep loading.

// Meta is the avatar's descriptive and licensing metadata.
type Meta struct {
	Name                 string   `json:"name"`
	Version              string   `json:"version"`
	Authors              []string `json:"authors"`
	CopyrightInformation string   `json:"copyrightInformation"`
	ContactInformation   string   `json:"contactInformation"`
	References           []string `json:"references"`
	ThirdPartyLicenses   string   `json:"thirdPartyLicenses"`
	ThumbnailImage       *int     `json:"thumbnailImage"`
	LicenseURL           string   `json:"licenseUrl"`
	AvatarPermission     string   `json:"avatarPermission"`
	CommercialUsage      string   `json:"commercialUsage"`
	CreditNotation       string   `json:"creditNotation"`
	Modification         string   `json:"modification"`
	AllowRedistribution  bool     `json:"allowRedistribution"`
}

// Humanoid declares the standard-rig bone mapping.
type Humanoid struct {
	HumanBones map[string]HumanBone `json:"humanBones"`
}

// HumanBone references the scene node realizing one humanoid bone.
type HumanBone struct {
	Node int `json:"node"`
}

// Expression is one facial expression definition with its morph-target
// bindings. Material color and texture transform binds exist in the format
// but are not consumed by face tracking.
type Expression struct {
	MorphTargetBinds []MorphTargetBind `json:"morphTargetBinds"`
	IsBinary         bool              `json:"isBinary"`
	OverrideBlink    string            `json:"overrideBlink"`
	OverrideLookAt   string            `json:"overrideLookAt"`
	OverrideMouth    string            `json:"overrideMouth"`
}

// MorphTargetBind drives one morph target on one node's mesh.
type MorphTargetBind struct {
	Node   int     `json:"node"`
	Index  int     `json:"index"`
	Weight float32 `json:"weight"`
}

// LookAt configures gaze behaviour.
type LookAt struct {
	OffsetFromHeadBone      [3]float32 `json:"offsetFromHeadBone"`
	Type                    string     `json:"type"`
	RangeMapHorizontalInner *RangeMap  `json:"rangeMapHorizontalInner"`
	RangeMapHorizontalOuter *RangeMap  `json:"rangeMapHorizontalOuter"`
	RangeMapVerticalDown    *RangeMap  `json:"rangeMapVerticalDown"`
	RangeMapVerticalUp      *RangeMap  `json:"rangeMapVerticalUp"`
}

// RangeMap maps a gaze input angle onto an output scale.
type RangeMap struct {
	InputMaxValue float32 `json:"inputMaxValue"`
	OutputScale   float32 `json:"outputScale"`
}

// FirstPerson annotates meshes for first-person rendering.
type FirstPerson struct {
	MeshAnnotations []MeshAnnotation `json:"meshAnnotations"`
}

// MeshAnnotation flags one node's visibility in first-person view.
type MeshAnnotation struct {
	Node int    `json:"node"`
	Type string `json:"type"`
}

// extensionRoot is the raw VRMC_vrm block as it appears in the container.
type extensionRoot struct {
	SpecVersion string       `json:"specVersion"`
	Meta        Meta         `json:"meta"`
	Humanoid    *Humanoid    `json:"humanoid"`
	Expressions expressions  `json:"expressions"`
	LookAt      *LookAt      `json:"lookAt"`
	FirstPerson *FirstPerson `json:"firstPerson"`
}

// expressions separates preset-named from custom-named entries on the wire;
// the parser merges them into one name-keyed map.
type expressions struct {
	Preset map[string]Expression `json:"preset"`
	Custom map[string]Expression `json:"custom"`
}
