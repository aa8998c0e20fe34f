package utils

// BLASBackend names the BLAS implementation used by gonum for dense kernels.
var BLASBackend = "gonum"
