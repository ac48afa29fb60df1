package main

import "catrack/internal/models"

// Shared type aliases so handlers and tests can use the unqualified
// names while the definitions live in internal/models.

type APIResponse = models.APIResponse
type Meta = models.Meta
type Admin = models.Admin
type DataCapturer = models.DataCapturer
type Campus = models.Campus
type Room = models.Room
type Item = models.Item
type ItemMovement = models.ItemMovement
type InventoryExport = models.InventoryExport
type AuditEntry = models.AuditEntry
type DashboardData = models.DashboardData
