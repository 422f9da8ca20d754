package store

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS depots (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    code        TEXT NOT NULL UNIQUE,
    label       TEXT NOT NULL DEFAULT '',
    address     TEXT NOT NULL DEFAULT '',
    city        TEXT NOT NULL DEFAULT '',
    postal_code TEXT NOT NULL DEFAULT '',
    phone       TEXT NOT NULL DEFAULT '',
    gps_x       REAL NOT NULL DEFAULT 0,
    gps_y       REAL NOT NULL DEFAULT 0,
    depot_type  TEXT NOT NULL DEFAULT 'storage',
    created_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS customers (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    name        TEXT NOT NULL,
    first_name  TEXT NOT NULL DEFAULT '',
    phone       TEXT NOT NULL DEFAULT '',
    email       TEXT NOT NULL DEFAULT '',
    created_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS customer_addresses (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    customer_id INTEGER NOT NULL REFERENCES customers(id) ON DELETE CASCADE,
    label       TEXT NOT NULL DEFAULT '',
    street      TEXT NOT NULL DEFAULT '',
    city        TEXT NOT NULL DEFAULT '',
    postal_code TEXT NOT NULL DEFAULT '',
    is_default  INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_customer_addresses_customer ON customer_addresses(customer_id);

CREATE TABLE IF NOT EXISTS employees (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    name        TEXT NOT NULL,
    first_name  TEXT NOT NULL DEFAULT '',
    email       TEXT NOT NULL DEFAULT '',
    depot_id    INTEGER REFERENCES depots(id),
    created_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS drivers (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    name           TEXT NOT NULL,
    phone          TEXT NOT NULL DEFAULT '',
    license_number TEXT NOT NULL DEFAULT '',
    active         INTEGER NOT NULL DEFAULT 1,
    created_at     TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS vehicles (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    name        TEXT NOT NULL,
    plate       TEXT NOT NULL DEFAULT '',
    capacity    INTEGER NOT NULL DEFAULT 0,
    created_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS products (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    code          TEXT NOT NULL UNIQUE,
    product_type  TEXT NOT NULL DEFAULT 'cylinder',
    unit_code     TEXT NOT NULL DEFAULT '',
    label         TEXT NOT NULL DEFAULT '',
    price         REAL NOT NULL DEFAULT 0,
    real_capacity REAL NOT NULL DEFAULT 0,
    created_at    TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS product_instances (
    id                   INTEGER PRIMARY KEY AUTOINCREMENT,
    product_id           INTEGER NOT NULL REFERENCES products(id),
    serial_number        TEXT NOT NULL UNIQUE,
    barcode              TEXT NOT NULL DEFAULT '',
    ownership            TEXT NOT NULL DEFAULT 'company',
    valve_type           TEXT NOT NULL DEFAULT '',
    manufacturer         TEXT NOT NULL DEFAULT '',
    manufacture_date     TEXT,
    expiration_date      TEXT,
    last_test_date       TEXT,
    state                TEXT NOT NULL DEFAULT 'active',
    status               TEXT NOT NULL DEFAULT 'active',
    location_category    TEXT NOT NULL DEFAULT '',
    location_id          INTEGER,
    last_inspection_date TEXT,
    next_inspection_date TEXT,
    created_at           TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at           TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_instances_product ON product_instances(product_id);

CREATE TABLE IF NOT EXISTS movements (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    instance_id      INTEGER NOT NULL REFERENCES product_instances(id),
    movement_type    TEXT NOT NULL,
    status           TEXT NOT NULL DEFAULT 'pending',
    source_kind      TEXT NOT NULL DEFAULT '',
    source_id        INTEGER,
    destination_kind TEXT NOT NULL,
    destination_id   INTEGER NOT NULL,
    route_id         INTEGER REFERENCES delivery_routes(id) ON DELETE SET NULL,
    order_id         INTEGER REFERENCES orders(id) ON DELETE SET NULL,
    movement_date    TEXT NOT NULL,
    comments         TEXT NOT NULL DEFAULT '',
    created_by       TEXT NOT NULL DEFAULT 'system',
    created_at       TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at       TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_movements_latest ON movements(instance_id, movement_date DESC, id DESC);

CREATE TABLE IF NOT EXISTS maintenances (
    id                    INTEGER PRIMARY KEY AUTOINCREMENT,
    instance_id           INTEGER NOT NULL REFERENCES product_instances(id),
    maintenance_type      TEXT NOT NULL,
    status                TEXT NOT NULL DEFAULT 'planned',
    planned_date          TEXT NOT NULL,
    actual_date           TEXT,
    result                TEXT NOT NULL DEFAULT '',
    cost                  REAL,
    next_maintenance_date TEXT,
    certificate_number    TEXT NOT NULL DEFAULT '',
    performed_by          TEXT NOT NULL DEFAULT '',
    destination_depot_id  INTEGER REFERENCES depots(id),
    comments              TEXT NOT NULL DEFAULT '',
    created_at            TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at            TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_maintenances_instance ON maintenances(instance_id);
CREATE INDEX IF NOT EXISTS idx_maintenances_status ON maintenances(status);

CREATE TABLE IF NOT EXISTS orders (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    order_number  TEXT NOT NULL UNIQUE,
    customer_id   INTEGER NOT NULL REFERENCES customers(id),
    address_id    INTEGER REFERENCES customer_addresses(id) ON DELETE SET NULL,
    order_date    TEXT NOT NULL,
    delivery_date TEXT,
    status        TEXT NOT NULL DEFAULT 'pending',
    total_amount  REAL NOT NULL DEFAULT 0,
    comments      TEXT NOT NULL DEFAULT '',
    created_at    TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at    TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);
CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders(customer_id);

CREATE TABLE IF NOT EXISTS order_details (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id    INTEGER NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
    product_id  INTEGER NOT NULL REFERENCES products(id),
    quantity    INTEGER NOT NULL DEFAULT 1,
    unit_price  REAL NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_order_details_order ON order_details(order_id);

CREATE TABLE IF NOT EXISTS delivery_routes (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    route_number TEXT NOT NULL UNIQUE,
    route_date   TEXT NOT NULL,
    vehicle_id   INTEGER NOT NULL REFERENCES vehicles(id),
    driver_id    INTEGER NOT NULL REFERENCES drivers(id),
    start_time   TEXT NOT NULL DEFAULT '',
    end_time     TEXT NOT NULL DEFAULT '',
    status       TEXT NOT NULL DEFAULT 'planned',
    comments     TEXT NOT NULL DEFAULT '',
    created_at   TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at   TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS route_stops (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    route_id        INTEGER NOT NULL REFERENCES delivery_routes(id) ON DELETE CASCADE,
    order_id        INTEGER NOT NULL REFERENCES orders(id),
    stop_order      INTEGER NOT NULL,
    planned_arrival TEXT NOT NULL DEFAULT '',
    actual_arrival  TEXT,
    status          TEXT NOT NULL DEFAULT 'pending',
    comments        TEXT NOT NULL DEFAULT ''
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_route_stops_order ON route_stops(route_id, order_id);

CREATE TABLE IF NOT EXISTS inventory (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    depot_id        INTEGER NOT NULL REFERENCES depots(id),
    product_id      INTEGER NOT NULL REFERENCES products(id),
    quantity        INTEGER NOT NULL DEFAULT 0,
    last_updated    TEXT NOT NULL DEFAULT (datetime('now')),
    last_updated_by TEXT NOT NULL DEFAULT 'system',
    UNIQUE(depot_id, product_id)
);

CREATE TABLE IF NOT EXISTS inventory_adjustments (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    depot_id     INTEGER NOT NULL REFERENCES depots(id),
    product_id   INTEGER NOT NULL REFERENCES products(id),
    old_quantity INTEGER NOT NULL DEFAULT 0,
    new_quantity INTEGER NOT NULL DEFAULT 0,
    reason       TEXT NOT NULL DEFAULT '',
    actor        TEXT NOT NULL DEFAULT 'system',
    created_at   TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS stock_alerts (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    product_id  INTEGER NOT NULL UNIQUE REFERENCES products(id),
    threshold   INTEGER NOT NULL,
    active      INTEGER NOT NULL DEFAULT 1,
    created_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS inventory_orders (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    reference    TEXT NOT NULL UNIQUE,
    depot_id     INTEGER NOT NULL REFERENCES depots(id),
    status       TEXT NOT NULL DEFAULT 'pending',
    planned_date TEXT NOT NULL,
    started_at   TEXT,
    completed_at TEXT,
    comments     TEXT NOT NULL DEFAULT '',
    created_by   TEXT NOT NULL DEFAULT 'system',
    created_at   TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS inventory_order_lines (
    id                 INTEGER PRIMARY KEY AUTOINCREMENT,
    inventory_order_id INTEGER NOT NULL REFERENCES inventory_orders(id) ON DELETE CASCADE,
    product_id         INTEGER NOT NULL REFERENCES products(id),
    expected_quantity  INTEGER NOT NULL DEFAULT 0,
    counted_quantity   INTEGER,
    difference         INTEGER
);

CREATE TABLE IF NOT EXISTS deposit_rates (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    product_id  INTEGER NOT NULL UNIQUE REFERENCES products(id),
    amount      REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS customer_deposits (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    customer_id    INTEGER NOT NULL REFERENCES customers(id),
    product_id     INTEGER NOT NULL REFERENCES products(id),
    order_id       INTEGER REFERENCES orders(id) ON DELETE SET NULL,
    employee_id    INTEGER REFERENCES employees(id) ON DELETE SET NULL,
    amount         REAL NOT NULL DEFAULT 0,
    paid           INTEGER NOT NULL DEFAULT 0,
    payment_method TEXT NOT NULL DEFAULT '',
    deposit_date   TEXT NOT NULL,
    status         TEXT NOT NULL DEFAULT 'active',
    comments       TEXT NOT NULL DEFAULT '',
    created_at     TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_deposits_customer ON customer_deposits(customer_id);

CREATE TABLE IF NOT EXISTS documents (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    number         TEXT NOT NULL UNIQUE,
    doc_type       TEXT NOT NULL,
    doc_date       TEXT NOT NULL,
    order_id       INTEGER REFERENCES orders(id) ON DELETE SET NULL,
    deposit_id     INTEGER REFERENCES customer_deposits(id) ON DELETE SET NULL,
    customer_id    INTEGER NOT NULL REFERENCES customers(id),
    total_amount   REAL NOT NULL DEFAULT 0,
    payment_status TEXT NOT NULL DEFAULT 'unpaid',
    payment_date   TEXT,
    payment_method TEXT NOT NULL DEFAULT '',
    comments       TEXT NOT NULL DEFAULT '',
    created_at     TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_documents_customer ON documents(customer_id);

CREATE TABLE IF NOT EXISTS outbox (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    topic       TEXT NOT NULL,
    payload     BLOB NOT NULL,
    msg_type    TEXT NOT NULL DEFAULT '',
    retries     INTEGER NOT NULL DEFAULT 0,
    created_at  TEXT NOT NULL DEFAULT (datetime('now')),
    sent_at     TEXT
);
CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox(sent_at) WHERE sent_at IS NULL;

CREATE TABLE IF NOT EXISTS audit_log (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    entity_type TEXT NOT NULL,
    entity_id   INTEGER NOT NULL DEFAULT 0,
    action      TEXT NOT NULL,
    old_value   TEXT NOT NULL DEFAULT '',
    new_value   TEXT NOT NULL DEFAULT '',
    actor       TEXT NOT NULL DEFAULT 'system',
    created_at  TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_audit_entity ON audit_log(entity_type, entity_id);

CREATE TABLE IF NOT EXISTS admin_users (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    username      TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at    TEXT NOT NULL DEFAULT (datetime('now'))
);
`
