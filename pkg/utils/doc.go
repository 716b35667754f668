// Package utils holds small request helpers shared by the api packages.
package utils
