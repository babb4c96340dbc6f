// Package repository commits observation documents to the catalog
// repository. Each observation is processed as one fetch/modify/push
// transaction so a failed run never leaves a half-written record behind.
package repository
