package metadata

type CullMode uint8

const (
	CullModeNone CullMode = iota
	CullModeFront
	CullModeBack
)

type DepthCompare uint8

const (
	DepthCompareAlways DepthCompare = iota
	DepthCompareNever
	DepthCompareLess
	DepthCompareEqual
	DepthCompareLessOrEqual
	DepthCompareGreater
	DepthCompareNotEqual
	DepthCompareGreaterOrEqual
)

type BlendFactor uint8

const (
	BlendFactorZero BlendFactor = iota
	BlendFactorOne
	BlendFactorSrcColor
	BlendFactorOneMinusSrcColor
	BlendFactorDstColor
	BlendFactorOneMinusDstColor
	BlendFactorSrcAlpha
	BlendFactorOneMinusSrcAlpha
	BlendFactorDstAlpha
	BlendFactorOneMinusDstAlpha
	BlendFactorConstantColor
	BlendFactorOneMinusConstantColor
	BlendFactorSrcAlphaSaturate
)

type BlendOp uint8

const (
	BlendOpAdd BlendOp = iota
	BlendOpSubtract
	BlendOpReverseSubtract
	BlendOpMin
	BlendOpMax
)

// BlendMask selects which colour channels are written.
type BlendMask uint8

const (
	BlendMaskR BlendMask = 1 << iota
	BlendMaskG
	BlendMaskB
	BlendMaskA
	BlendMaskNone BlendMask = 0
	BlendMaskRGB            = BlendMaskR | BlendMaskG | BlendMaskB
	BlendMaskRGBA           = BlendMaskRGB | BlendMaskA
)

/** @brief Describes how source and destination colours are combined. Comparable, usable as part of a map key. */
type BlendMode struct {
	ColorOperation   BlendOp
	ColorSource      BlendFactor
	ColorDestination BlendFactor
	AlphaOperation   BlendOp
	AlphaSource      BlendFactor
	AlphaDestination BlendFactor
	Mask             BlendMask
}

var (
	BlendModeOpaque = BlendMode{
		ColorOperation: BlendOpAdd, ColorSource: BlendFactorOne, ColorDestination: BlendFactorZero,
		AlphaOperation: BlendOpAdd, AlphaSource: BlendFactorOne, AlphaDestination: BlendFactorZero,
		Mask: BlendMaskRGBA,
	}
	BlendModeNonPremultiplied = BlendMode{
		ColorOperation: BlendOpAdd, ColorSource: BlendFactorSrcAlpha, ColorDestination: BlendFactorOneMinusSrcAlpha,
		AlphaOperation: BlendOpAdd, AlphaSource: BlendFactorOne, AlphaDestination: BlendFactorOneMinusSrcAlpha,
		Mask: BlendMaskRGBA,
	}
	BlendModePremultiplied = BlendMode{
		ColorOperation: BlendOpAdd, ColorSource: BlendFactorOne, ColorDestination: BlendFactorOneMinusSrcAlpha,
		AlphaOperation: BlendOpAdd, AlphaSource: BlendFactorOne, AlphaDestination: BlendFactorOneMinusSrcAlpha,
		Mask: BlendMaskRGBA,
	}
	BlendModeAdditive = BlendMode{
		ColorOperation: BlendOpAdd, ColorSource: BlendFactorSrcAlpha, ColorDestination: BlendFactorOne,
		AlphaOperation: BlendOpAdd, AlphaSource: BlendFactorSrcAlpha, AlphaDestination: BlendFactorOne,
		Mask: BlendMaskRGBA,
	}
)
