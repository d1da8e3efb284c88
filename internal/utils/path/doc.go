// Package pathutils normalizes the checkout paths handed to matrixbuild.
package pathutils
